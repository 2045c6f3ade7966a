// Package app wires the configured components shared by the server and the terminal client
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/backend"
	"github.com/example/mediatranslate/internal/clock"
	"github.com/example/mediatranslate/internal/config"
	"github.com/example/mediatranslate/internal/history"
	"github.com/example/mediatranslate/internal/notify"
	"github.com/example/mediatranslate/internal/player"
	"github.com/example/mediatranslate/internal/presenter"
	"github.com/example/mediatranslate/internal/storage"
	"github.com/example/mediatranslate/internal/upload"
	"github.com/example/mediatranslate/internal/workers"
	"github.com/example/mediatranslate/internal/workspace"
)

// App holds the long lived components built from config.AppConfig
type App struct {
	Backend  *backend.Client
	Uploader *upload.Controller
	History  *history.Store
	Pool     *workers.Pool
	Player   presenter.Player

	slot      storage.Provider
	publisher *notify.AMQPPublisher
	log       *zap.SugaredLogger
}

// New builds the components. config.LoadConfig must have been called.
func New(log *zap.SugaredLogger) (*App, error) {
	cfg := config.AppConfig
	a := &App{log: log}

	if err := presenter.SetLicenseKey(cfg.Office.LicenseKey); err != nil {
		log.Warnw("document license rejected, docx export may fail", "error", err)
	}

	a.Backend = backend.NewClient(cfg.Backend.BaseURL, config.BackendTimeout(), log.Named("backend"))
	a.Uploader = upload.NewController(a.Backend, upload.Options{
		MaxSize: config.MaxUploadBytes(),
		Log:     log.Named("upload"),
	})

	factory := storage.NewStorageFactory(log.Named("storage"))
	slot, err := factory.Create(cfg.History.Slot())
	if err != nil {
		// history still works for this run, it is just not persisted
		log.Errorw("history storage unavailable, keeping history in memory", "provider", cfg.History.Provider, "error", err)
	}
	a.slot = slot
	a.History = history.NewStore(slot, history.Options{
		Key:   cfg.History.Key,
		Limit: cfg.History.Limit,
		Log:   log.Named("history"),
	})

	if cfg.Features.EnableNotify {
		pub, err := notify.NewAMQPPublisher(cfg.Notify.AMQPURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to the history broker: %w", err)
		}
		a.publisher = pub
		a.History.Subscribe(notify.NewHistoryExporter(pub, cfg.Notify.Queue, log.Named("notify")).Observe)
		log.Infow("exporting history changes", "queue", cfg.Notify.Queue)
	}

	if cfg.Features.EnableTTS {
		p, err := player.NewCommand(cfg.Player.Command)
		if err != nil {
			log.Warnw("audio player unavailable, playback disabled", "error", err)
		} else {
			a.Player = p
		}
	}

	log.Infow("initializing worker pool", "workers", cfg.Workers.Count, "queue", cfg.Workers.QueueSize)
	a.Pool = workers.NewPool(cfg.Workers.Count, cfg.Workers.QueueSize, log.Named("workers"))
	return a, nil
}

// Deps returns the workspace collaborators
func (a *App) Deps() workspace.Deps {
	cfg := config.AppConfig
	deps := workspace.Deps{
		Uploader:    a.Uploader,
		History:     a.History,
		Clock:       clock.Real{},
		Executor:    a.Pool,
		Log:         a.log,
		BackendURL:  cfg.Backend.BaseURL,
		DemoDelay:   config.DemoDelay(),
		DemoEnabled: cfg.Features.EnableDemo,
	}
	if cfg.Features.EnableTTS && a.Player != nil {
		deps.Synthesizer = a.Backend
		deps.Player = a.Player
	}
	return deps
}

// Close stops the pool and releases the storage and broker connections
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Stop()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warnw("closing history broker", "error", err)
		}
	}
	if a.slot != nil {
		if err := storage.Close(a.slot); err != nil {
			a.log.Warnw("closing history storage", "error", err)
		}
	}
}
