package tui

import (
	"io"
	"os"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"

	"github.com/example/mediatranslate/internal/presenter"
)

// OSC52 writes text to the terminal clipboard with the OSC 52 escape sequence.
// w must not be the writer the program renders to.
func OSC52(w io.Writer) presenter.Clipboard {
	return presenter.ClipboardFunc(func(text string) error {
		seq := osc52.New(text)
		switch {
		case os.Getenv("TMUX") != "":
			seq = seq.Tmux()
		case strings.HasPrefix(os.Getenv("TERM"), "screen"):
			seq = seq.Screen()
		}
		_, err := seq.WriteTo(w)
		return err
	})
}
