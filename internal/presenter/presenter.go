// Package presenter holds the view state of a finished session: tabs,
// copy and download, bounding boxes, speakers and text to speech playback
package presenter

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/clock"
	"github.com/example/mediatranslate/internal/models"
)

// TabOriginal is the tab showing the recognized text
const TabOriginal = "original"

const (
	CopyAckDuration = 2 * time.Second
	NoticeTTL       = 4 * time.Second
	MaxTTSRunes     = 500
	MaxBoxes        = 20
)

// Voice is the text to speech speed selector
type Voice string

const (
	VoiceDefault Voice = "default"
	VoiceSlow    Voice = "slow"
)

// Clipboard receives copied text
type Clipboard interface {
	WriteText(text string) error
}

// ClipboardFunc adapts a function to Clipboard
type ClipboardFunc func(text string) error

// WriteText calls f(text)
func (f ClipboardFunc) WriteText(text string) error { return f(text) }

// Stats summarizes the displayed text
type Stats struct {
	Languages  int `json:"languages"`
	Characters int `json:"characters"`
	Words      int `json:"words"`
}

// View is a snapshot of the presenter
type View struct {
	ActiveTab string          `json:"activeTab"`
	Tabs      []string        `json:"tabs"`
	Text      string          `json:"text"`
	Source    string          `json:"sourceLanguage"`
	FileType  models.FileType `json:"fileType"`
	Filename  string          `json:"filename"`
	Stats     Stats           `json:"stats"`
	Copied    string          `json:"copied,omitempty"`
	HasBoxes  bool            `json:"hasBoxes"`
	ShowBoxes bool            `json:"showBoxes"`
	Voice     Voice           `json:"voice"`
	Playing   string          `json:"playing,omitempty"`
	Loading   bool            `json:"loading"`
	Notice    string          `json:"notice,omitempty"`
}

// Observer receives every new view
type Observer func(View)

// Options configures a Presenter
type Options struct {
	Clock       clock.Clock
	Synthesizer Synthesizer
	Player      Player
	Log         *zap.SugaredLogger
}

// Presenter is the view state of one result
type Presenter struct {
	mu       sync.Mutex
	result   *models.ProcessingResult
	fileType models.FileType
	filename string
	clock    clock.Clock
	log      *zap.SugaredLogger

	activeTab string
	showBoxes bool
	voice     Voice

	copied    string
	copyGen   uint64
	copyTimer clock.Timer

	notice      string
	noticeGen   uint64
	noticeTimer clock.Timer

	playback

	observers map[int]Observer
	nextObs   int
	notifyMu  sync.Mutex
}

// New creates a presenter for result on the original tab
func New(result *models.ProcessingResult, fileType models.FileType, filename string, opts Options) *Presenter {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if result == nil {
		result = &models.ProcessingResult{}
	}
	return &Presenter{
		result:    result,
		fileType:  fileType,
		filename:  filename,
		clock:     opts.Clock,
		log:       opts.Log,
		activeTab: TabOriginal,
		voice:     VoiceDefault,
		playback:  playback{synth: opts.Synthesizer, player: opts.Player},
		observers: make(map[int]Observer),
	}
}

// Result returns the presented result
func (p *Presenter) Result() *models.ProcessingResult {
	return p.result
}

// Tabs returns the original tab followed by the translation codes in response order
func (p *Presenter) Tabs() []string {
	return append([]string{TabOriginal}, p.result.Translation.Translations.Codes()...)
}

// HasTab reports whether tab can be selected
func (p *Presenter) HasTab(tab string) bool {
	if tab == TabOriginal {
		return true
	}
	_, ok := p.result.Translation.Translations.Get(tab)
	return ok
}

// ActiveTab returns the selected tab
func (p *Presenter) ActiveTab() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeTab
}

// SetTab selects tab. Unknown tabs are rejected and leave the selection unchanged.
func (p *Presenter) SetTab(tab string) error {
	if !p.HasTab(tab) {
		return fmt.Errorf("%w: %s", ErrUnknownTab, tab)
	}
	p.mu.Lock()
	changed := p.activeTab != tab
	p.activeTab = tab
	p.mu.Unlock()

	if changed {
		p.notify()
	}
	return nil
}

// Text returns the text of tab. A code without translation yields "".
func (p *Presenter) Text(tab string) string {
	if tab == TabOriginal {
		return p.result.Recognition.Text
	}
	text, _ := p.result.Translation.Translations.Get(tab)
	return text
}

// Stats summarizes the text of tab
func (p *Presenter) Stats(tab string) Stats {
	text := p.Text(tab)
	return Stats{
		Languages:  p.result.Translation.Translations.Len() + 1,
		Characters: models.CountChars(text),
		Words:      models.CountWords(text),
	}
}

// Copy writes the text of tab to cb and acknowledges it on that tab for CopyAckDuration
func (p *Presenter) Copy(tab string, cb Clipboard) error {
	if !p.HasTab(tab) {
		return fmt.Errorf("%w: %s", ErrUnknownTab, tab)
	}
	if cb == nil {
		return ErrNoClipboard
	}
	if err := cb.WriteText(p.Text(tab)); err != nil {
		return fmt.Errorf("copying %s: %w", tab, err)
	}

	p.mu.Lock()
	p.copied = tab
	p.copyGen++
	gen := p.copyGen
	if p.copyTimer != nil {
		p.copyTimer.Stop()
	}
	p.copyTimer = p.clock.AfterFunc(CopyAckDuration, func() {
		p.mu.Lock()
		if p.copyGen != gen {
			p.mu.Unlock()
			return
		}
		p.copied = ""
		p.copyTimer = nil
		p.mu.Unlock()
		p.notify()
	})
	p.mu.Unlock()

	p.notify()
	return nil
}

// Copied reports whether tab currently shows the copy acknowledgement
func (p *Presenter) Copied(tab string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copied != "" && p.copied == tab
}

// HasBoxes reports whether the result carries bounding boxes
func (p *Presenter) HasBoxes() bool {
	return len(p.result.Recognition.BoundingBoxes) > 0
}

// ToggleBoxes flips the bounding box overlay. It is a no-op without boxes.
func (p *Presenter) ToggleBoxes() bool {
	if !p.HasBoxes() {
		return false
	}
	p.mu.Lock()
	p.showBoxes = !p.showBoxes
	shown := p.showBoxes
	p.mu.Unlock()

	p.notify()
	return shown
}

// ShowBoxes reports whether the overlay is visible
func (p *Presenter) ShowBoxes() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.showBoxes
}

// Boxes returns the first MaxBoxes boxes and the total count
func (p *Presenter) Boxes() ([]models.BoundingBox, int) {
	boxes := p.result.Recognition.BoundingBoxes
	total := len(boxes)
	if total > MaxBoxes {
		boxes = boxes[:MaxBoxes]
	}
	return append([]models.BoundingBox(nil), boxes...), total
}

// Speakers returns the attributed segments, or nil when no speakers were detected
func (p *Presenter) Speakers() []models.Segment {
	if !p.result.HasSpeakers() {
		return nil
	}
	var out []models.Segment
	for _, s := range p.result.Recognition.Segments {
		if s.Speaker != "" {
			out = append(out, s)
		}
	}
	return out
}

// SetVoice selects the voice used by every later playback
func (p *Presenter) SetVoice(v Voice) error {
	if v != VoiceDefault && v != VoiceSlow {
		return fmt.Errorf("%w: %s", ErrUnknownVoice, v)
	}
	p.mu.Lock()
	p.voice = v
	p.mu.Unlock()

	p.notify()
	return nil
}

// Voice returns the selected voice
func (p *Presenter) Voice() Voice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voice
}

// Notice returns the transient playback notice
func (p *Presenter) Notice() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notice
}

// setNotice must be called with p.mu held
func (p *Presenter) setNotice(text string) {
	p.notice = text
	p.noticeGen++
	gen := p.noticeGen
	if p.noticeTimer != nil {
		p.noticeTimer.Stop()
	}
	p.noticeTimer = p.clock.AfterFunc(NoticeTTL, func() {
		p.mu.Lock()
		if p.noticeGen != gen {
			p.mu.Unlock()
			return
		}
		p.notice = ""
		p.noticeTimer = nil
		p.mu.Unlock()
		p.notify()
	})
}

// View returns a snapshot
func (p *Presenter) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view()
}

// view must be called with p.mu held
func (p *Presenter) view() View {
	text := p.Text(p.activeTab)
	return View{
		ActiveTab: p.activeTab,
		Tabs:      p.Tabs(),
		Text:      text,
		Source:    p.result.SourceLanguage(),
		FileType:  p.fileType,
		Filename:  p.filename,
		Stats:     p.Stats(p.activeTab),
		Copied:    p.copied,
		HasBoxes:  p.HasBoxes(),
		ShowBoxes: p.showBoxes,
		Voice:     p.voice,
		Playing:   p.playing,
		Loading:   p.loading,
		Notice:    p.notice,
	}
}

// Subscribe registers an observer and returns a function that removes it
func (p *Presenter) Subscribe(o Observer) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextObs
	p.nextObs++
	p.observers[id] = o
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.observers, id)
	}
}

func (p *Presenter) notify() {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	v := p.view()
	observers := make([]Observer, 0, len(p.observers))
	for _, o := range p.observers {
		observers = append(observers, o)
	}
	p.mu.Unlock()

	for _, o := range observers {
		o(v)
	}
}

// Close stops playback and pending timers
func (p *Presenter) Close() {
	p.Stop()
	p.mu.Lock()
	p.copyGen++
	p.noticeGen++
	if p.copyTimer != nil {
		p.copyTimer.Stop()
	}
	if p.noticeTimer != nil {
		p.noticeTimer.Stop()
	}
	p.mu.Unlock()
}
