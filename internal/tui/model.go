// Package tui is the terminal client: a Bubble Tea program over one workspace
package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/example/mediatranslate/internal/history"
	"github.com/example/mediatranslate/internal/langsel"
	"github.com/example/mediatranslate/internal/models"
	"github.com/example/mediatranslate/internal/presenter"
	"github.com/example/mediatranslate/internal/session"
	"github.com/example/mediatranslate/internal/upload"
	"github.com/example/mediatranslate/internal/workspace"
)

// Options configures the terminal client
type Options struct {
	// OutDir receives saved txt and docx files
	OutDir    string
	Clipboard presenter.Clipboard
	Log       *zap.SugaredLogger
	Now       func() time.Time
}

// Model is the Bubble Tea model of the terminal client
type Model struct {
	ws      *workspace.Workspace
	history *history.Store
	signal  *Signal
	opts    Options

	pathInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	historyT  table.Model

	cursor      int
	diarization bool

	state    session.State
	items    []models.HistoryItem
	status   string
	failed   bool
	width    int
	height   int
	quitting bool
}

// New creates the model. The signal must be the one wired into ws and store.
func New(ws *workspace.Workspace, store *history.Store, sig *Signal, opts Options) Model {
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}

	ti := textinput.New()
	ti.Placeholder = "/path/to/photo.jpg"
	ti.CharLimit = 1024
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	p := progress.New(progress.WithDefaultGradient(), progress.WithWidth(50))

	t := table.New(
		table.WithColumns(historyColumns(80)),
		table.WithHeight(6),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Selected = s.Selected.Foreground(ColorText).Bold(false)
	s.Cell = s.Cell.Foreground(ColorText)
	t.SetStyles(s)

	m := Model{
		ws:        ws,
		history:   store,
		signal:    sig,
		opts:      opts,
		pathInput: ti,
		spinner:   sp,
		progress:  p,
		historyT:  t,
		width:     80,
	}
	m.refresh()
	return m
}

func historyColumns(width int) []table.Column {
	file := width - 58
	if file < 16 {
		file = 16
	}
	return []table.Column{
		{Title: "When", Width: 14},
		{Title: "File", Width: file},
		{Title: "Type", Width: 6},
		{Title: "Languages", Width: 14},
		{Title: "Words", Width: 6},
		{Title: "Took", Width: 8},
	}
}

// refresh re-reads the session state and the history
func (m *Model) refresh() {
	m.state = m.ws.Machine.State()
	m.items = m.history.List()

	now := m.opts.Now()
	rows := make([]table.Row, len(m.items))
	for i, it := range m.items {
		rows[i] = table.Row{
			history.TimeAgo(it.Timestamp, now),
			it.Filename,
			string(it.FileType),
			strings.Join(it.TargetLanguages, ","),
			fmt.Sprint(it.WordCount),
			it.Duration,
		}
	}
	m.historyT.SetRows(rows)
}

// Init starts the spinner and the change listener
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.signal.wait())
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = clamp(m.width-20, 20, 80)
		m.historyT.SetColumns(historyColumns(m.width))
		return m, nil

	case changedMsg:
		m.refresh()
		return m, m.signal.wait()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.pathInput.Focused() {
			return m.handlePathInput(msg)
		}
		if msg.String() == "q" {
			return m.quit()
		}

		switch m.state.Phase {
		case session.PhaseUpload:
			return m.handleUploadKeys(msg)
		case session.PhaseProcessing:
			if msg.String() == "esc" {
				m.ws.Machine.Reset()
				m.setStatus("Cancelled", false)
				m.refresh()
			}
			return m, nil
		case session.PhaseResult:
			return m.handleResultKeys(msg)
		}
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}

func (m *Model) setStatus(text string, failed bool) {
	m.status = text
	m.failed = failed
}

func (m Model) handlePathInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "esc":
		m.pathInput.Blur()
		return m, nil
	case "enter":
		m.pathInput.Blur()
		m.submit(strings.TrimSpace(m.pathInput.Value()))
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(langsel.Catalog)-1 {
			m.cursor++
		}
	case " ":
		code := langsel.Catalog[m.cursor].Code
		if err := m.ws.Languages.Toggle(code); err != nil {
			m.setStatus(err.Error(), true)
		}
	case "tab":
		m.pathInput.Focus()
		return m, textinput.Blink
	case "enter":
		m.submit(strings.TrimSpace(m.pathInput.Value()))
	case "i":
		m.diarization = !m.diarization
	case "d":
		if err := m.ws.Machine.Demo(); err != nil {
			m.setStatus(demoError(err), true)
		}
	case "x":
		m.history.Clear()
		m.setStatus("History cleared", false)
	}
	m.refresh()
	return m, nil
}

func demoError(err error) string {
	if errors.Is(err, session.ErrDemoDisabled) {
		return "Demo mode is disabled"
	}
	return err.Error()
}

// submit opens path and hands it to the machine, which closes it
func (m *Model) submit(path string) {
	if path == "" {
		m.pathInput.Focus()
		m.setStatus("Enter a file path first", true)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		m.setStatus(fmt.Sprintf("Cannot open %s: %v", path, err), true)
		return
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		m.setStatus(fmt.Sprintf("%s is not a file", path), true)
		return
	}

	m.setStatus("", false)
	err = m.ws.Machine.Submit(upload.File{Name: filepath.Base(path), Size: info.Size(), Content: f}, m.diarization)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.opts.Log.Infow("file submitted", "path", path, "size", info.Size(), "diarization", m.diarization)
}

func (m Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.ws.Presenter()
	if p == nil {
		return m, nil
	}

	switch msg.String() {
	case "left", "h":
		m.moveTab(p, -1)
	case "right", "l":
		m.moveTab(p, 1)
	case "c":
		if err := p.Copy(p.ActiveTab(), m.opts.Clipboard); err != nil {
			m.setStatus(err.Error(), true)
		}
	case "s":
		m.save(p, presenter.FormatTXT)
	case "w":
		m.save(p, presenter.FormatDOCX)
	case "b":
		if !p.HasBoxes() {
			m.setStatus("No text blocks were detected", true)
		} else {
			p.ToggleBoxes()
		}
	case "p":
		if err := p.Play(p.ActiveTab()); err != nil {
			m.setStatus(err.Error(), true)
		}
	case "v":
		next := presenter.VoiceSlow
		if p.Voice() == presenter.VoiceSlow {
			next = presenter.VoiceDefault
		}
		p.SetVoice(next)
	case "r":
		m.ws.Machine.Reset()
		m.setStatus("", false)
	}
	m.refresh()
	return m, nil
}

func (m *Model) moveTab(p *presenter.Presenter, delta int) {
	tabs := p.Tabs()
	active := p.ActiveTab()
	for i, t := range tabs {
		if t == active {
			next := (i + delta + len(tabs)) % len(tabs)
			p.SetTab(tabs[next])
			return
		}
	}
}

func (m *Model) save(p *presenter.Presenter, format string) {
	name, data, err := p.Download(p.ActiveTab(), format)
	if err != nil {
		m.setStatus(fmt.Sprintf("Export failed: %v", err), true)
		return
	}
	path := filepath.Join(m.opts.OutDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		m.setStatus(fmt.Sprintf("Cannot write %s: %v", path, err), true)
		return
	}
	m.opts.Log.Infow("result saved", "path", path, "format", format)
	m.setStatus("Saved to "+path, false)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
