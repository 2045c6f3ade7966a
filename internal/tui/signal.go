package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/example/mediatranslate/internal/history"
	"github.com/example/mediatranslate/internal/models"
	"github.com/example/mediatranslate/internal/presenter"
	"github.com/example/mediatranslate/internal/session"
	"github.com/example/mediatranslate/internal/workspace"
)

// changedMsg tells the model to re-read its sources
type changedMsg struct{}

// Signal coalesces change notifications from the workspace and the history
// store into at most one pending message. Observers never block on it.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates a signal
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify marks the sources as changed
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Listener returns workspace callbacks that raise the signal
func (s *Signal) Listener() workspace.Listener {
	return workspace.Listener{
		OnState: func(session.State) { s.Notify() },
		OnView:  func(presenter.View) { s.Notify() },
	}
}

// HistoryObserver returns a history observer that raises the signal
func (s *Signal) HistoryObserver() history.Observer {
	return func([]models.HistoryItem) { s.Notify() }
}

// wait blocks until the next notification
func (s *Signal) wait() tea.Cmd {
	return func() tea.Msg {
		<-s.ch
		return changedMsg{}
	}
}
