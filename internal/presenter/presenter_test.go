package presenter

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/example/mediatranslate/internal/backend"
	"github.com/example/mediatranslate/internal/clock"
	"github.com/example/mediatranslate/internal/models"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleResult() *models.ProcessingResult {
	return &models.ProcessingResult{
		Recognition: models.Recognition{
			Text:     "Привет мир",
			Speakers: &models.Speakers{NumSpeakers: 2},
			Segments: []models.Segment{
				{Speaker: "SPEAKER_00", Start: decimal.NewFromFloat(0), End: decimal.NewFromFloat(1.5), Text: "Привет"},
				{Start: decimal.NewFromFloat(1.5), End: decimal.NewFromFloat(2), Text: "..."},
				{Speaker: "SPEAKER_01", Start: decimal.NewFromFloat(2), End: decimal.NewFromFloat(3), Text: "мир"},
			},
		},
		Translation: models.Translation{
			SourceLanguage: "ru",
			Translations:   models.NewTranslations([2]string{"en", "Hello world"}, [2]string{"kk", "Сәлем әлем"}),
		},
	}
}

func newPresenter(t *testing.T, opts Options) (*Presenter, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(epoch)
	opts.Clock = clk
	return New(sampleResult(), models.FileTypeAudio, "talk.mp3", opts), clk
}

func TestTabs(t *testing.T) {
	p, _ := newPresenter(t, Options{})

	if p.ActiveTab() != TabOriginal {
		t.Errorf("default tab = %s", p.ActiveTab())
	}
	if got := p.Tabs(); !reflect.DeepEqual(got, []string{"original", "en", "kk"}) {
		t.Errorf("Tabs() = %v", got)
	}
	if err := p.SetTab("kk"); err != nil {
		t.Fatalf("SetTab(kk) failed: %v", err)
	}
	if err := p.SetTab("de"); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("expected ErrUnknownTab, got %v", err)
	}
	if p.ActiveTab() != "kk" {
		t.Errorf("rejected SetTab changed the tab to %s", p.ActiveTab())
	}
	if p.Text("kk") != "Сәлем әлем" || p.Text(TabOriginal) != "Привет мир" || p.Text("de") != "" {
		t.Error("unexpected tab texts")
	}
}

func TestStats(t *testing.T) {
	p, _ := newPresenter(t, Options{})
	got := p.Stats(TabOriginal)
	if got != (Stats{Languages: 3, Characters: 10, Words: 2}) {
		t.Errorf("Stats = %+v", got)
	}
}

func TestCopyAcknowledgementIsPerTab(t *testing.T) {
	p, clk := newPresenter(t, Options{})
	var clipboard []string
	cb := ClipboardFunc(func(text string) error {
		clipboard = append(clipboard, text)
		return nil
	})

	if err := p.Copy("en", cb); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if !p.Copied("en") || p.Copied("kk") || p.Copied(TabOriginal) {
		t.Error("copy acknowledgement leaked to another tab")
	}

	clk.Advance(time.Second)
	p.Copy("kk", cb)
	if p.Copied("en") || !p.Copied("kk") {
		t.Error("second copy did not move the acknowledgement")
	}

	// The first copy's timer must not clear the second acknowledgement
	clk.Advance(1500 * time.Millisecond)
	if !p.Copied("kk") {
		t.Error("acknowledgement cleared by a superseded timer")
	}
	clk.Advance(500 * time.Millisecond)
	if p.Copied("kk") {
		t.Error("acknowledgement did not expire after 2s")
	}

	if !reflect.DeepEqual(clipboard, []string{"Hello world", "Сәлем әлем"}) {
		t.Errorf("clipboard = %v", clipboard)
	}
}

func TestCopyErrors(t *testing.T) {
	p, _ := newPresenter(t, Options{})
	if err := p.Copy("en", nil); !errors.Is(err, ErrNoClipboard) {
		t.Errorf("expected ErrNoClipboard, got %v", err)
	}
	failing := ClipboardFunc(func(string) error { return errors.New("denied") })
	if err := p.Copy("en", failing); err == nil || p.Copied("en") {
		t.Error("failed copy was acknowledged")
	}
}

func TestBoxes(t *testing.T) {
	p, _ := newPresenter(t, Options{})
	if p.ToggleBoxes() || p.ShowBoxes() {
		t.Error("toggle without boxes should be a no-op")
	}

	result := sampleResult()
	for i := 0; i < 25; i++ {
		result.Recognition.BoundingBoxes = append(result.Recognition.BoundingBoxes, models.BoundingBox{Text: "w", Confidence: 0.9})
	}
	withBoxes := New(result, models.FileTypeImage, "scan.png", Options{Clock: clock.NewManual(epoch)})
	withBoxes.SetTab("en")

	if !withBoxes.ToggleBoxes() || !withBoxes.ShowBoxes() {
		t.Error("toggle did not show boxes")
	}
	if withBoxes.ActiveTab() != "en" {
		t.Error("toggling boxes changed the tab")
	}
	boxes, total := withBoxes.Boxes()
	if len(boxes) != MaxBoxes || total != 25 {
		t.Errorf("Boxes() = %d of %d", len(boxes), total)
	}
	if withBoxes.ToggleBoxes() {
		t.Error("second toggle should hide boxes")
	}
}

func TestSpeakers(t *testing.T) {
	p, _ := newPresenter(t, Options{})
	segments := p.Speakers()
	if len(segments) != 2 || segments[0].Text != "Привет" || segments[1].Text != "мир" {
		t.Errorf("Speakers() = %+v", segments)
	}

	result := sampleResult()
	result.Recognition.Speakers = &models.Speakers{NumSpeakers: 0}
	if New(result, models.FileTypeAudio, "a.mp3", Options{}).Speakers() != nil {
		t.Error("segments shown without detected speakers")
	}
}

func TestDownload(t *testing.T) {
	p, _ := newPresenter(t, Options{})

	name, data, err := p.Download("kk", FormatTXT)
	if err != nil || name != "translation_kk.txt" || string(data) != "Сәлем әлем" {
		t.Errorf("Download(kk) = %s %q %v", name, data, err)
	}
	name, _, _ = p.Download(TabOriginal, "")
	if name != "original.txt" {
		t.Errorf("Download(original) name = %s", name)
	}
	if _, _, err := p.Download("en", "pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	name, data, err = p.Download("en", FormatDOCX)
	if err != nil {
		t.Skipf("docx export unavailable without a license: %v", err)
	}
	if name != "translation_en.docx" || !strings.HasPrefix(string(data), "PK") {
		t.Errorf("unexpected docx %s (%d bytes)", name, len(data))
	}
}

func TestSetVoice(t *testing.T) {
	p, _ := newPresenter(t, Options{})
	if p.Voice() != VoiceDefault {
		t.Errorf("default voice = %s", p.Voice())
	}
	if err := p.SetVoice("fast"); !errors.Is(err, ErrUnknownVoice) {
		t.Errorf("expected ErrUnknownVoice, got %v", err)
	}
	p.SetVoice(VoiceSlow)
	p.SetTab("kk")
	if p.Voice() != VoiceSlow {
		t.Error("voice changed with the tab")
	}
}

// fakeSynth returns a fixed stream
type fakeSynth struct {
	mu       sync.Mutex
	requests []backend.SynthesizeRequest
	err      error
}

func (f *fakeSynth) Synthesize(ctx context.Context, in backend.SynthesizeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, in)
	if f.err != nil {
		return "", f.err
	}
	return "http://backend/static/" + in.Language + ".mp3", nil
}

func (f *fakeSynth) OpenAudio(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(rawURL)), nil
}

// blockingPlayer plays until cancelled or released and tracks overlap
type blockingPlayer struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	events  []string
	started chan string
	release chan struct{}
	err     error
}

func newBlockingPlayer() *blockingPlayer {
	return &blockingPlayer{started: make(chan string, 10), release: make(chan struct{})}
}

func (b *blockingPlayer) Play(ctx context.Context, audio io.Reader) error {
	data, _ := io.ReadAll(audio)
	name := string(data)

	b.mu.Lock()
	b.active++
	if b.active > b.maxSeen {
		b.maxSeen = b.active
	}
	b.events = append(b.events, "start "+name)
	b.mu.Unlock()
	b.started <- name

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-b.release:
		err = b.err
	}

	b.mu.Lock()
	b.active--
	b.events = append(b.events, "stop "+name)
	b.mu.Unlock()
	return err
}

func waitStarted(t *testing.T, b *blockingPlayer) string {
	t.Helper()
	select {
	case name := <-b.started:
		return name
	case <-time.After(5 * time.Second):
		t.Fatal("player did not start")
		return ""
	}
}

func TestPlaybackExclusivity(t *testing.T) {
	synth := &fakeSynth{}
	player := newBlockingPlayer()
	p, _ := newPresenter(t, Options{Synthesizer: synth, Player: player})

	if err := p.Play("en"); err != nil {
		t.Fatalf("Play(en) failed: %v", err)
	}
	waitStarted(t, player)
	if p.Playing() != "en" {
		t.Errorf("Playing() = %q", p.Playing())
	}

	if err := p.Play("kk"); err != nil {
		t.Fatalf("Play(kk) failed: %v", err)
	}
	if p.Playing() != "kk" {
		t.Errorf("Playing() = %q after switching", p.Playing())
	}
	waitStarted(t, player)

	// Toggle to stop
	if err := p.Play("kk"); err != nil {
		t.Fatalf("Play(kk) again failed: %v", err)
	}
	if p.Playing() != "" {
		t.Errorf("Playing() = %q after toggle", p.Playing())
	}
	p.Wait()

	player.mu.Lock()
	defer player.mu.Unlock()
	if player.maxSeen != 1 {
		t.Errorf("%d players overlapped", player.maxSeen)
	}
	want := []string{
		"start http://backend/static/en.mp3",
		"stop http://backend/static/en.mp3",
		"start http://backend/static/kk.mp3",
		"stop http://backend/static/kk.mp3",
	}
	if !reflect.DeepEqual(player.events, want) {
		t.Errorf("events = %v", player.events)
	}
	if p.Notice() != "" {
		t.Errorf("cancellation produced a notice %q", p.Notice())
	}
}

func TestPlaybackRequest(t *testing.T) {
	result := sampleResult()
	result.Recognition.Text = strings.Repeat("я", 700)
	synth := &fakeSynth{}
	player := newBlockingPlayer()
	close(player.release)
	p := New(result, models.FileTypeAudio, "a.mp3", Options{Clock: clock.NewManual(epoch), Synthesizer: synth, Player: player})
	p.SetVoice(VoiceSlow)

	p.Play(TabOriginal)
	p.Wait()

	if len(synth.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(synth.requests))
	}
	req := synth.requests[0]
	if utf8.RuneCountInString(req.Text) != MaxTTSRunes || req.Language != "ru" || req.Voice != "slow" {
		t.Errorf("unexpected request language %s voice %s runes %d", req.Language, req.Voice, utf8.RuneCountInString(req.Text))
	}
	if p.Playing() != "" {
		t.Error("completion did not clear the playing marker")
	}
}

func TestPlayOriginalNeedsDetectedSource(t *testing.T) {
	result := sampleResult()
	result.Translation.SourceLanguage = ""
	synth := &fakeSynth{}
	player := newBlockingPlayer()
	close(player.release)
	p := New(result, models.FileTypeImage, "a.png", Options{Clock: clock.NewManual(epoch), Synthesizer: synth, Player: player})

	if err := p.Play(TabOriginal); !errors.Is(err, ErrUndetectedSource) {
		t.Fatalf("expected ErrUndetectedSource, got %v", err)
	}
	if p.Playing() != "" || len(synth.requests) != 0 {
		t.Error("rejected playback reached the synthesizer")
	}

	if err := p.Play("en"); err != nil {
		t.Fatalf("Play(en) failed: %v", err)
	}
	p.Wait()
	if len(synth.requests) != 1 || synth.requests[0].Language != "en" {
		t.Errorf("unexpected requests %+v", synth.requests)
	}
}

func TestPlaybackErrorsSetTransientNotice(t *testing.T) {
	synth := &fakeSynth{err: errors.New("tts offline")}
	player := newBlockingPlayer()
	p, clk := newPresenter(t, Options{Synthesizer: synth, Player: player})
	p.SetTab("en")

	p.Play("kk")
	p.Wait()

	if p.Playing() != "" {
		t.Error("failed playback left the marker set")
	}
	if p.Notice() != NoticeSynthesisFailed {
		t.Errorf("notice = %q", p.Notice())
	}
	if p.ActiveTab() != "en" {
		t.Error("playback error changed the tab")
	}
	clk.Advance(NoticeTTL)
	if p.Notice() != "" {
		t.Error("notice did not expire")
	}

	synth.err = nil
	player.err = errors.New("device busy")
	close(player.release)
	p.Play("kk")
	p.Wait()
	if p.Notice() != NoticePlaybackFailed {
		t.Errorf("notice = %q", p.Notice())
	}
}

func TestPlayWithoutSynthesizer(t *testing.T) {
	p, _ := newPresenter(t, Options{})
	if err := p.Play("en"); !errors.Is(err, ErrPlayback) {
		t.Errorf("expected ErrPlayback, got %v", err)
	}
	if err := p.Play("de"); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("expected ErrUnknownTab, got %v", err)
	}
}

func TestObserversReceiveViews(t *testing.T) {
	p, _ := newPresenter(t, Options{})
	var tabs []string
	unsubscribe := p.Subscribe(func(v View) { tabs = append(tabs, v.ActiveTab) })
	p.SetTab("en")
	p.SetTab("en")
	p.SetTab("kk")
	unsubscribe()
	p.SetTab(TabOriginal)

	if !reflect.DeepEqual(tabs, []string{"en", "kk"}) {
		t.Errorf("observed tabs %v", tabs)
	}
}
