// Package main is the terminal client of the media translation service
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/example/mediatranslate/internal/app"
	"github.com/example/mediatranslate/internal/config"
	"github.com/example/mediatranslate/internal/logging"
	"github.com/example/mediatranslate/internal/tui"
	"github.com/example/mediatranslate/internal/workspace"
)

var (
	configFile = flag.String("config", "mediatranslate.json", "Configuration file path")
	logFile    = flag.String("log", "mediatranslate-client.log", "Log file path")
	outDir     = flag.String("out", ".", "Directory for saved results")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	if err := config.LoadConfig(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// the terminal belongs to the UI, logs go to a file
	log, err := logging.NewFile(*logFile, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	a, err := app.New(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	sig := tui.NewSignal()
	ws := workspace.New(uuid.NewString(), a.Deps(), sig.Listener())
	defer ws.Close()
	a.History.Subscribe(sig.HistoryObserver())

	model := tui.New(ws, a.History, sig, tui.Options{
		OutDir:    *outDir,
		Clipboard: tui.OSC52(os.Stderr),
		Log:       log.Named("tui"),
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Errorw("terminal client failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
