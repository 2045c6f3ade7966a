// Package session drives one upload, processing and result lifecycle
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/clock"
	"github.com/example/mediatranslate/internal/media"
	"github.com/example/mediatranslate/internal/models"
	"github.com/example/mediatranslate/internal/upload"
	"github.com/example/mediatranslate/internal/workers"
)

// Errors returned by the machine
var (
	ErrBusy         = errors.New("a session is already active, reset first")
	ErrDemoDisabled = errors.New("demo is disabled")
)

const (
	// StageInterval is the delay between simulated stage increments
	StageInterval = 2 * time.Second
	// DefaultDemoDelay is how long the demo pretends to process
	DefaultDemoDelay = 6 * time.Second
	tickInterval     = time.Second
)

// Uploader validates and submits files
type Uploader interface {
	Validate(f upload.File) (media.Profile, error)
	Submit(ctx context.Context, f upload.File, languages []string, diarization bool, progress upload.ProgressFunc) (*upload.Receipt, error)
}

// Languages provides the current target language selection
type Languages interface {
	Codes() []string
}

// Recorder stores finished sessions
type Recorder interface {
	Record(item models.HistoryItem) models.HistoryItem
}

// Observer receives every new state
type Observer func(State)

// Options configures a Machine
type Options struct {
	Clock       clock.Clock
	Executor    workers.Executor
	Log         *zap.SugaredLogger
	BackendURL  string
	DemoDelay   time.Duration
	DemoEnabled bool
}

// Machine is the session state machine. All transitions happen under one
// lock; every timer and request completion carries the session number it
// was started for and does nothing once that session is over.
type Machine struct {
	mu       sync.Mutex
	state    State
	session  uint64
	timers   []clock.Timer
	tick     clock.Timer
	cancel   context.CancelFunc
	langs    Languages
	uploader Uploader
	history  Recorder
	opts     Options
	log      *zap.SugaredLogger

	observers map[int]Observer
	nextObs   int
	notifyMu  sync.Mutex
}

// NewMachine creates a machine in the upload phase
func NewMachine(uploader Uploader, langs Languages, history Recorder, opts Options) *Machine {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Executor == nil {
		opts.Executor = workers.Spawn
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.DemoDelay <= 0 {
		opts.DemoDelay = DefaultDemoDelay
	}
	return &Machine{
		state:     State{Phase: PhaseUpload},
		langs:     langs,
		uploader:  uploader,
		history:   history,
		opts:      opts,
		log:       opts.Log,
		observers: make(map[int]Observer),
	}
}

// State returns the current snapshot
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers an observer and returns a function that removes it.
// Observers are called one at a time with the latest state and must not
// call back into transitions.
func (m *Machine) Subscribe(o Observer) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = o
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.observers, id)
	}
}

func (m *Machine) notify() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	st := m.state
	observers := make([]Observer, 0, len(m.observers))
	for _, o := range m.observers {
		observers = append(observers, o)
	}
	m.mu.Unlock()

	for _, o := range observers {
		o(st)
	}
}

// Submit starts processing f. Validation failures leave the machine in the
// upload phase with the error message set; they are not returned.
func (m *Machine) Submit(f upload.File, diarization bool) error {
	m.mu.Lock()
	if m.state.Phase != PhaseUpload {
		m.mu.Unlock()
		closeContent(f)
		return ErrBusy
	}

	profile, err := m.uploader.Validate(f)
	if err != nil {
		m.state = State{Phase: PhaseUpload, Session: m.session, Error: upload.Message(err, m.opts.BackendURL)}
		m.mu.Unlock()
		closeContent(f)
		m.log.Infow("rejected file", "filename", f.Name, "error", err)
		m.notify()
		return nil
	}

	languages := m.langs.Codes()
	ctx, cancel := context.WithCancel(context.Background())
	sess := m.begin(profile, f.Name, false)
	m.cancel = cancel
	m.mu.Unlock()

	m.log.Infow("session started", "session", sess, "filename", f.Name, "fileType", profile.Type, "languages", languages)
	m.notify()

	progress := func(pct int) { m.setUploadProgress(sess, pct) }
	err = m.opts.Executor.Go(uuid.NewString(), func() {
		receipt, err := m.uploader.Submit(ctx, f, languages, diarization, progress)
		m.complete(sess, receipt, languages, err)
	})
	if err != nil {
		closeContent(f)
		m.complete(sess, nil, languages, err)
	}
	return nil
}

// Demo runs the canned session without touching the network
func (m *Machine) Demo() error {
	m.mu.Lock()
	if !m.opts.DemoEnabled {
		m.mu.Unlock()
		return ErrDemoDisabled
	}
	if m.state.Phase != PhaseUpload {
		m.mu.Unlock()
		return ErrBusy
	}

	profile, _ := media.DefaultRegistry.Profile(models.FileTypeImage)
	sess := m.begin(profile, DemoFilename, true)
	m.timers = append(m.timers, m.opts.Clock.AfterFunc(m.opts.DemoDelay, func() {
		result := DemoResult()
		m.complete(sess, &upload.Receipt{Result: result, FileType: models.FileTypeImage}, result.Translation.Translations.Codes(), nil)
	}))
	m.mu.Unlock()

	m.log.Infow("demo session started", "session", sess)
	m.notify()
	return nil
}

// Reset returns to an empty upload step from any phase. An in-flight
// request is cancelled and its completion ignored.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.session++
	m.stopTimers()
	m.state = State{Phase: PhaseUpload, Session: m.session}
	m.mu.Unlock()

	m.notify()
}

// begin must be called with m.mu held. It enters the processing phase
// and schedules the stage and elapsed timers.
func (m *Machine) begin(profile media.Profile, filename string, demo bool) uint64 {
	m.stopTimers()
	m.session++
	sess := m.session

	stageCount := profile.StageCount
	if stageCount <= 0 {
		stageCount = media.StageCount(profile.Type)
	}
	m.state = State{
		Phase:   PhaseProcessing,
		Session: sess,
		Processing: &Processing{
			StartedAt:  m.opts.Clock.Now(),
			StageCount: stageCount,
			Stages:     profile.Stages,
			FileType:   profile.Type,
			Filename:   filename,
			Demo:       demo,
		},
	}

	for i := 1; i <= stageCount; i++ {
		stage := i
		m.timers = append(m.timers, m.opts.Clock.AfterFunc(time.Duration(stage)*StageInterval, func() {
			m.update(sess, func(p *Processing) bool {
				if stage <= p.StageIndex {
					return false
				}
				p.StageIndex = stage
				return true
			})
		}))
	}
	m.scheduleTick(sess)
	return sess
}

// scheduleTick must be called with m.mu held
func (m *Machine) scheduleTick(sess uint64) {
	m.tick = m.opts.Clock.AfterFunc(tickInterval, func() {
		m.mu.Lock()
		if m.session != sess || m.state.Phase != PhaseProcessing {
			m.mu.Unlock()
			return
		}
		p := *m.state.Processing
		p.ElapsedSeconds = int(m.opts.Clock.Now().Sub(p.StartedAt) / time.Second)
		m.state.Processing = &p
		m.scheduleTick(sess)
		m.mu.Unlock()

		m.notify()
	})
}

func (m *Machine) setUploadProgress(sess uint64, pct int) {
	m.update(sess, func(p *Processing) bool {
		if pct <= p.UploadProgress {
			return false
		}
		p.UploadProgress = pct
		return true
	})
}

// update applies fn to a copy of the processing state of sess
func (m *Machine) update(sess uint64, fn func(p *Processing) bool) {
	m.mu.Lock()
	if m.session != sess || m.state.Phase != PhaseProcessing {
		m.mu.Unlock()
		return
	}
	p := *m.state.Processing
	if !fn(&p) {
		m.mu.Unlock()
		return
	}
	m.state.Processing = &p
	m.mu.Unlock()

	m.notify()
}

// complete settles session sess. Completion always cuts the remaining
// simulated stages short.
func (m *Machine) complete(sess uint64, receipt *upload.Receipt, languages []string, err error) {
	m.mu.Lock()
	if m.session != sess || m.state.Phase != PhaseProcessing {
		m.mu.Unlock()
		m.log.Debugw("ignoring stale completion", "session", sess)
		return
	}
	m.stopTimers()
	p := m.state.Processing

	if err != nil {
		m.state = State{Phase: PhaseUpload, Session: sess, Error: upload.Message(err, m.opts.BackendURL)}
		m.mu.Unlock()

		m.log.Warnw("session failed", "session", sess, "filename", p.Filename, "error", err)
		m.notify()
		return
	}

	elapsed := int(m.opts.Clock.Now().Sub(p.StartedAt) / time.Second)
	if p.Demo {
		elapsed = int(m.opts.DemoDelay / time.Second)
	}
	result := receipt.Result
	item := models.HistoryItem{
		Filename:        p.Filename,
		FileType:        receipt.FileType,
		SourceLanguage:  result.SourceLanguage(),
		TargetLanguages: languages,
		WordCount:       models.CountWords(result.Recognition.Text),
		Duration:        FormatElapsed(elapsed),
		Fingerprint:     receipt.Fingerprint,
	}
	m.state = State{
		Phase:   PhaseResult,
		Session: sess,
		Result:  &ResultState{Data: result, FileType: receipt.FileType, Filename: p.Filename},
	}
	m.mu.Unlock()

	if m.history != nil {
		m.history.Record(item)
	}
	m.log.Infow("session finished", "session", sess, "filename", item.Filename, "words", item.WordCount, "duration", item.Duration)
	m.notify()
}

// stopTimers must be called with m.mu held
func (m *Machine) stopTimers() {
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
	if m.tick != nil {
		m.tick.Stop()
		m.tick = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func closeContent(f upload.File) {
	if c, ok := f.Content.(io.Closer); ok {
		c.Close()
	}
}
