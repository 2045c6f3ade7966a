// Package main is the entry point for the media translation web companion
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/mediatranslate/internal/app"
	"github.com/example/mediatranslate/internal/auth"
	"github.com/example/mediatranslate/internal/config"
	"github.com/example/mediatranslate/internal/handlers"
	"github.com/example/mediatranslate/internal/logging"
	"github.com/example/mediatranslate/internal/middleware"
	"github.com/example/mediatranslate/internal/workspace"
)

var (
	configFile = flag.String("config", "mediatranslate.json", "Configuration file path")
	testConfig = flag.Bool("test-config", false, "Test configuration and exit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = "0.4.0"
)

// idle workspaces are dropped after this long without a request
const workspaceIdle = 2 * time.Hour

// isPortInUse checks if the given port is already in use
func isPortInUse(host string, port int) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return true
	}
	listener.Close()
	return false
}

// findFreePort tries ports upwards from startPort and gives up after 100
// ports or at 65535, returning startPort.
func findFreePort(host string, startPort int) int {
	maxPortToTry := startPort + 100
	if maxPortToTry > 65535 {
		maxPortToTry = 65535
	}
	for port := startPort; port <= maxPortToTry; port++ {
		if !isPortInUse(host, port) {
			return port
		}
	}
	return startPort
}

func main() {
	flag.Parse()

	if err := config.LoadConfig(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *testConfig {
		fmt.Println("Configuration test successful")
		return
	}

	log, err := logging.New(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	fmt.Printf("\n=================================\n")
	fmt.Printf("Media Translate v%s\n", version)
	fmt.Printf("=================================\n\n")
	fmt.Printf("Backend: %s\n", config.AppConfig.Backend.BaseURL)
	fmt.Printf("History: %s (last %d sessions)\n", config.AppConfig.History.Provider, config.AppConfig.History.Limit)

	a, err := app.New(log)
	if err != nil {
		log.Fatalw("failed to initialize", "error", err)
	}

	hub := handlers.NewWebSocketHub(config.AllowedOriginList(), log.Named("ws"))
	hub.Run()

	workspaces := workspace.NewRegistry(a.Deps(), workspaceIdle, hub.WorkspaceListener)
	api := handlers.NewAPIHandler(workspaces, a.History, hub, config.MaxUploadBytes(), log.Named("api"))
	a.History.Subscribe(api.HistoryObserver())

	router := mux.NewRouter()
	api.Register(router)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		active, queued := a.Pool.Stats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","workspaces":%d,"activeTasks":%d,"queuedTasks":%d}`, workspaces.Len(), active, queued)
	}).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(config.AppConfig.Server.UIDir)))

	handler := middleware.Chain(
		auth.RequireClient(router),
		middleware.Logger(log.Named("http")),
		middleware.Recover(log),
		middleware.CORS(config.AllowedOriginList()),
	)

	originalPort := config.AppConfig.Server.Port
	if isPortInUse(config.AppConfig.Server.Host, originalPort) {
		newPort := findFreePort(config.AppConfig.Server.Host, originalPort)
		if newPort != originalPort {
			log.Warnw("port in use, switching", "port", originalPort, "newPort", newPort)
			config.AppConfig.Server.Port = newPort
		} else {
			log.Warnw("port in use and no alternative found, the server may fail to start", "port", originalPort)
		}
	}

	addr := config.GetAddressString()
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopSweep := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := workspaces.Sweep(); n > 0 {
					log.Infow("dropped idle workspaces", "count", n)
				}
			case <-stopSweep:
				return
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		tls := config.AppConfig.Server.CertFile != "" && config.AppConfig.Server.KeyFile != ""
		log.Infow("starting server", "addr", addr, "tls", tls)

		var err error
		if tls {
			err = server.ListenAndServeTLS(config.AppConfig.Server.CertFile, config.AppConfig.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-stop
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(config.AppConfig.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Warnw("server forced to shutdown", "error", err)
	}
	close(stopSweep)
	workspaces.CloseAll()
	a.Close()

	log.Info("server shutdown complete")
}
