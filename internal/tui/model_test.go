package tui

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/example/mediatranslate/internal/clock"
	"github.com/example/mediatranslate/internal/history"
	"github.com/example/mediatranslate/internal/models"
	"github.com/example/mediatranslate/internal/presenter"
	"github.com/example/mediatranslate/internal/session"
	"github.com/example/mediatranslate/internal/upload"
	"github.com/example/mediatranslate/internal/workers"
	"github.com/example/mediatranslate/internal/workspace"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type stubProcessor struct{}

func (stubProcessor) ProcessQuick(ctx context.Context, body io.Reader, contentType string) (*models.ProcessingResult, error) {
	io.Copy(io.Discard, body)
	return &models.ProcessingResult{
		Recognition: models.Recognition{Text: "Guten Tag"},
		Translation: models.Translation{SourceLanguage: "de", Translations: models.NewTranslations([2]string{"en", "Good day"})},
	}, nil
}

type harness struct {
	model  Model
	clock  *clock.Manual
	store  *history.Store
	copied []string
	outDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{clock: clock.NewManual(epoch), outDir: t.TempDir()}
	h.store = history.NewStore(nil, history.Options{Clock: h.clock})

	sig := NewSignal()
	ws := workspace.New("terminal", workspace.Deps{
		Uploader:    upload.NewController(stubProcessor{}, upload.Options{}),
		History:     h.store,
		Clock:       h.clock,
		Executor:    workers.Inline,
		DemoEnabled: true,
	}, sig.Listener())
	t.Cleanup(ws.Close)
	h.store.Subscribe(sig.HistoryObserver())

	cb := presenter.ClipboardFunc(func(text string) error {
		h.copied = append(h.copied, text)
		return nil
	})
	h.model = New(ws, h.store, sig, Options{
		OutDir:    h.outDir,
		Clipboard: cb,
		Now:       func() time.Time { return epoch.Add(time.Minute) },
	})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) key(s string) tea.Cmd {
	switch s {
	case " ":
		return h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	case "up":
		return h.send(tea.KeyMsg{Type: tea.KeyUp})
	case "down":
		return h.send(tea.KeyMsg{Type: tea.KeyDown})
	case "left":
		return h.send(tea.KeyMsg{Type: tea.KeyLeft})
	case "right":
		return h.send(tea.KeyMsg{Type: tea.KeyRight})
	case "tab":
		return h.send(tea.KeyMsg{Type: tea.KeyTab})
	case "enter":
		return h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		return h.send(tea.KeyMsg{Type: tea.KeyEsc})
	}
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestToggleLanguages(t *testing.T) {
	h := newHarness(t)

	h.key("down")
	h.key(" ")
	if got := strings.Join(h.model.ws.Languages.Codes(), ","); got != "ru,en" {
		t.Errorf("after removing kk: %s", got)
	}
	h.key("down")
	h.key("down")
	h.key(" ")
	if got := strings.Join(h.model.ws.Languages.Codes(), ","); got != "ru,en,de" {
		t.Errorf("after adding de: %s", got)
	}
	h.key("i")
	if !h.model.diarization {
		t.Error("i did not enable speaker detection")
	}
}

func TestDemoResultKeys(t *testing.T) {
	h := newHarness(t)

	h.key("d")
	if h.model.state.Phase != session.PhaseProcessing {
		t.Fatalf("phase after d = %s", h.model.state.Phase)
	}
	if !strings.Contains(h.model.View(), session.DemoFilename) {
		t.Error("processing view does not name the demo file")
	}

	h.clock.Advance(session.DefaultDemoDelay)
	h.send(changedMsg{})
	if h.model.state.Phase != session.PhaseResult {
		t.Fatalf("phase after the demo delay = %s", h.model.state.Phase)
	}
	if !strings.Contains(h.model.View(), "Привет!") {
		t.Error("result view does not show the original text")
	}

	h.key("right")
	p := h.model.ws.Presenter()
	if p.ActiveTab() != "kk" {
		t.Errorf("active tab after right = %s", p.ActiveTab())
	}
	h.key("left")
	h.key("left")
	if p.ActiveTab() != "en" {
		t.Errorf("left from original should wrap to the last tab, got %s", p.ActiveTab())
	}

	h.key("c")
	if len(h.copied) != 1 || !strings.HasPrefix(h.copied[0], "Hello!") {
		t.Errorf("copied %q", h.copied)
	}
	if !strings.Contains(h.model.View(), "Copied") {
		t.Error("copy acknowledgement not shown")
	}

	h.key("s")
	data, err := os.ReadFile(filepath.Join(h.outDir, presenter.DownloadName("en", presenter.FormatTXT)))
	if err != nil || !strings.HasPrefix(string(data), "Hello!") {
		t.Errorf("saved file: %q, %v", data, err)
	}

	h.key("v")
	if p.Voice() != presenter.VoiceSlow {
		t.Error("v did not switch to the slow voice")
	}

	h.key("p")
	if !h.model.failed {
		t.Error("playback without a synthesizer should report an error")
	}

	h.key("r")
	if h.model.state.Phase != session.PhaseUpload {
		t.Errorf("phase after r = %s", h.model.state.Phase)
	}
	if len(h.model.items) != 1 {
		t.Errorf("history has %d items", len(h.model.items))
	}

	h.key("x")
	if len(h.model.items) != 0 {
		t.Error("x did not clear the history")
	}
}

func TestSubmitFromPath(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "sign.png")
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	h.key("tab")
	if !h.model.pathInput.Focused() {
		t.Fatal("tab did not focus the path input")
	}
	h.key(path)
	h.key("q")
	if h.model.quitting {
		t.Fatal("q in the path input quit the program")
	}
	h.model.pathInput.SetValue(path)
	h.key("enter")

	if h.model.state.Phase != session.PhaseResult {
		t.Fatalf("phase after submit = %s (%s)", h.model.state.Phase, h.model.status)
	}
	if h.model.ws.Presenter().Text("en") != "Good day" {
		t.Error("result not presented")
	}
}

func TestSubmitErrors(t *testing.T) {
	h := newHarness(t)

	h.key("enter")
	if !h.model.failed || !h.model.pathInput.Focused() {
		t.Errorf("empty path: status %q", h.model.status)
	}
	h.key("esc")

	h.model.pathInput.SetValue(filepath.Join(t.TempDir(), "missing.png"))
	h.key("enter")
	if !h.model.failed || h.model.state.Phase != session.PhaseUpload {
		t.Errorf("missing file: status %q phase %s", h.model.status, h.model.state.Phase)
	}

	path := filepath.Join(t.TempDir(), "doc.pdf")
	os.WriteFile(path, []byte("pdf"), 0644)
	h.model.pathInput.SetValue(path)
	h.key("enter")
	if h.model.state.Error == "" {
		t.Error("unsupported file did not set the upload error")
	}
	if !strings.Contains(h.model.View(), h.model.state.Error) {
		t.Error("upload error not rendered")
	}
}

func TestQuit(t *testing.T) {
	h := newHarness(t)
	cmd := h.key("q")
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if h.model.View() != "" {
		t.Error("view not cleared after quit")
	}
}

func TestOSC52(t *testing.T) {
	t.Setenv("TMUX", "")
	t.Setenv("TERM", "xterm-256color")
	var b strings.Builder
	if err := OSC52(&b).WriteText("hi"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(b.String(), "\x1b]52;c;aGk=") {
		t.Errorf("sequence = %q", b.String())
	}

	t.Setenv("TMUX", "/tmp/tmux-0/default,1,0")
	b.Reset()
	if err := OSC52(&b).WriteText("hi"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(b.String(), "\x1bPtmux;") || !strings.Contains(b.String(), "aGk=") {
		t.Errorf("tmux sequence = %q", b.String())
	}
}
