// Package workspace bundles the language selection, the session machine and
// the result presenter that one user interacts with
package workspace

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/clock"
	"github.com/example/mediatranslate/internal/langsel"
	"github.com/example/mediatranslate/internal/presenter"
	"github.com/example/mediatranslate/internal/session"
	"github.com/example/mediatranslate/internal/workers"
)

// Deps are the collaborators shared by every workspace
type Deps struct {
	Uploader    session.Uploader
	History     session.Recorder
	Synthesizer presenter.Synthesizer
	Player      presenter.Player
	Clock       clock.Clock
	Executor    workers.Executor
	Log         *zap.SugaredLogger
	BackendURL  string
	DemoDelay   time.Duration
	DemoEnabled bool
}

// Listener receives the workspace's changes. Nil callbacks are skipped.
type Listener struct {
	OnState func(session.State)
	OnView  func(presenter.View)
}

// Workspace is the state of one user
type Workspace struct {
	ID        string
	Languages *langsel.Set
	Machine   *session.Machine

	mu               sync.Mutex
	presenter        *presenter.Presenter
	presenterSession uint64
	deps             Deps
	listener         Listener
	unsubscribe      func()
}

// New creates a workspace with the default language selection
func New(id string, deps Deps, listener Listener) *Workspace {
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	w := &Workspace{
		ID:        id,
		Languages: langsel.Default(),
		deps:      deps,
		listener:  listener,
	}
	w.Machine = session.NewMachine(deps.Uploader, w.Languages, deps.History, session.Options{
		Clock:       deps.Clock,
		Executor:    deps.Executor,
		Log:         deps.Log.With("workspace", id),
		BackendURL:  deps.BackendURL,
		DemoDelay:   deps.DemoDelay,
		DemoEnabled: deps.DemoEnabled,
	})
	w.unsubscribe = w.Machine.Subscribe(w.onState)
	return w
}

// onState swaps the presenter when a session reaches or leaves the result
func (w *Workspace) onState(st session.State) {
	w.mu.Lock()
	var stale *presenter.Presenter
	switch {
	case st.Phase == session.PhaseResult && (w.presenter == nil || w.presenterSession != st.Session):
		stale = w.presenter
		p := presenter.New(st.Result.Data, st.Result.FileType, st.Result.Filename, presenter.Options{
			Clock:       w.deps.Clock,
			Synthesizer: w.deps.Synthesizer,
			Player:      w.deps.Player,
			Log:         w.deps.Log.With("workspace", w.ID),
		})
		if w.listener.OnView != nil {
			p.Subscribe(w.listener.OnView)
		}
		w.presenter = p
		w.presenterSession = st.Session
	case st.Phase != session.PhaseResult && w.presenter != nil:
		stale = w.presenter
		w.presenter = nil
		w.presenterSession = 0
	}
	w.mu.Unlock()

	if stale != nil {
		stale.Close()
	}
	if w.listener.OnState != nil {
		w.listener.OnState(st)
	}
}

// Presenter returns the presenter of the current result, or nil
func (w *Workspace) Presenter() *presenter.Presenter {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.presenter
}

// Close resets the session and stops playback
func (w *Workspace) Close() {
	w.Machine.Reset()
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	w.mu.Lock()
	p := w.presenter
	w.presenter = nil
	w.mu.Unlock()
	if p != nil {
		p.Close()
	}
}
