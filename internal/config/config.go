// Package config provides configuration management for the media translation client
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/mediatranslate/internal/storage"
)

// Settings holds the application configuration
type Settings struct {
	Server   ServerConfig  `json:"server"`
	Backend  BackendConfig `json:"backend"`
	History  HistoryConfig `json:"history"`
	Player   PlayerConfig  `json:"player"`
	Workers  WorkerConfig  `json:"workers"`
	Features FeatureConfig `json:"features"`
	Notify   NotifyConfig  `json:"notify"`
	Office   OfficeConfig  `json:"office"`
}

// ServerConfig contains web companion configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	UIDir           string `json:"uiDir"`
	CertFile        string `json:"certFile"`
	KeyFile         string `json:"keyFile"`
	ShutdownTimeout int    `json:"shutdownTimeout"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowedOrigins"`
}

// BackendConfig locates the recognition and translation service
type BackendConfig struct {
	BaseURL        string `json:"baseURL"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
	MaxUploadMB    int    `json:"maxUploadMB"`
}

// HistoryConfig selects where the history record is persisted
type HistoryConfig struct {
	Provider string            `json:"provider"`
	Key      string            `json:"key"`
	Limit    int               `json:"limit"`
	Local    map[string]string `json:"local"`
	S3       map[string]string `json:"s3"`
	Google   map[string]string `json:"google"`
	SQLite   map[string]string `json:"sqlite"`
	Postgres map[string]string `json:"postgres"`
}

// PlayerConfig contains audio output configuration
type PlayerConfig struct {
	Command string `json:"command"`
}

// WorkerConfig contains worker pool configuration
type WorkerConfig struct {
	Count     int `json:"count"`
	QueueSize int `json:"queueSize"`
}

// FeatureConfig contains feature flags
type FeatureConfig struct {
	EnableDemo       bool `json:"enableDemo"`
	DemoDelaySeconds int  `json:"demoDelaySeconds"`
	EnableTTS        bool `json:"enableTTS"`
	EnableNotify     bool `json:"enableNotify"`
}

// NotifyConfig contains the broker used to export history changes
type NotifyConfig struct {
	AMQPURL string `json:"amqpURL"`
	Queue   string `json:"queue"`
}

// OfficeConfig contains document export configuration
type OfficeConfig struct {
	LicenseKey string `json:"licenseKey"`
}

// AppConfig is the global application configuration
var AppConfig Settings

// Defaults returns the built in configuration
func Defaults() Settings {
	return Settings{
		Server: ServerConfig{
			Port:            8080,
			UIDir:           "./ui",
			ShutdownTimeout: 30,
			Host:            "127.0.0.1",
			AllowedOrigins:  "*",
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 600,
			MaxUploadMB:    100,
		},
		History: HistoryConfig{
			Provider: "local",
			Key:      "ai-translate-history",
			Limit:    10,
			Local:    map[string]string{"basePath": "./data"},
			SQLite:   map[string]string{"dsn": "file:./data/history.db"},
		},
		Player: PlayerConfig{
			Command: "ffplay -nodisp -autoexit -loglevel quiet -i -",
		},
		Workers: WorkerConfig{
			Count:     runtime.NumCPU(),
			QueueSize: 100,
		},
		Features: FeatureConfig{
			EnableDemo:       true,
			DemoDelaySeconds: 6,
			EnableTTS:        true,
			EnableNotify:     false,
		},
		Notify: NotifyConfig{
			Queue: "mediatranslate.history",
		},
	}
}

// LoadConfig loads configuration from .env, a JSON file and environment variables
func LoadConfig(configFile string) error {
	// A missing .env is fine
	_ = godotenv.Load()

	AppConfig = Defaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return fmt.Errorf("error reading config file: %w", err)
			}

			if err := json.Unmarshal(data, &AppConfig); err != nil {
				return fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	overrideWithEnv()

	if err := validate(); err != nil {
		return err
	}

	if err := ensureDirectoriesExist(); err != nil {
		return err
	}

	return nil
}

// overrideWithEnv overrides configuration with MT_ environment variables
func overrideWithEnv() {
	setString("MT_HOST", &AppConfig.Server.Host)
	setInt("MT_PORT", &AppConfig.Server.Port)
	setString("MT_UI_DIR", &AppConfig.Server.UIDir)
	setString("MT_CERT_FILE", &AppConfig.Server.CertFile)
	setString("MT_KEY_FILE", &AppConfig.Server.KeyFile)
	setString("MT_ALLOWED_ORIGINS", &AppConfig.Server.AllowedOrigins)

	setString("MT_BACKEND_URL", &AppConfig.Backend.BaseURL)
	setInt("MT_BACKEND_TIMEOUT", &AppConfig.Backend.TimeoutSeconds)
	setInt("MT_MAX_UPLOAD_MB", &AppConfig.Backend.MaxUploadMB)

	setString("MT_HISTORY_PROVIDER", &AppConfig.History.Provider)
	setInt("MT_HISTORY_LIMIT", &AppConfig.History.Limit)
	if dsn := os.Getenv("MT_HISTORY_DSN"); dsn != "" {
		opts := AppConfig.History.Options()
		opts["dsn"] = dsn
		AppConfig.History.setOptions(opts)
	}

	if dir := os.Getenv("MT_DATA_DIR"); dir != "" {
		if AppConfig.History.Local == nil {
			AppConfig.History.Local = make(map[string]string)
		}
		AppConfig.History.Local["basePath"] = dir
	}

	setString("MT_PLAYER_COMMAND", &AppConfig.Player.Command)

	setInt("MT_WORKER_COUNT", &AppConfig.Workers.Count)
	setInt("MT_WORKER_QUEUE", &AppConfig.Workers.QueueSize)

	setBool("MT_ENABLE_DEMO", &AppConfig.Features.EnableDemo)
	setBool("MT_ENABLE_TTS", &AppConfig.Features.EnableTTS)
	setBool("MT_ENABLE_NOTIFY", &AppConfig.Features.EnableNotify)

	setString("MT_AMQP_URL", &AppConfig.Notify.AMQPURL)
	setString("MT_AMQP_QUEUE", &AppConfig.Notify.Queue)

	setString("MT_UNIOFFICE_LICENSE_KEY", &AppConfig.Office.LicenseKey)
}

func setString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func setInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func validate() error {
	if AppConfig.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseURL is required")
	}
	if !strings.HasPrefix(AppConfig.Backend.BaseURL, "http://") && !strings.HasPrefix(AppConfig.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.baseURL must be an http(s) URL: %s", AppConfig.Backend.BaseURL)
	}
	if AppConfig.Backend.MaxUploadMB <= 0 {
		return fmt.Errorf("backend.maxUploadMB must be positive")
	}
	if AppConfig.Features.EnableNotify && AppConfig.Notify.AMQPURL == "" {
		return fmt.Errorf("notify.amqpURL is required when notifications are enabled")
	}
	return nil
}

// ensureDirectoriesExist creates required directories if they don't exist
func ensureDirectoriesExist() error {
	dirs := []string{AppConfig.Server.UIDir}
	if AppConfig.History.Provider == "local" || AppConfig.History.Provider == "" {
		dirs = append(dirs, AppConfig.History.Local["basePath"])
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Clean(dir), 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Options returns a copy of the provider options of the selected history provider
func (h HistoryConfig) Options() map[string]string {
	var src map[string]string
	switch h.Provider {
	case "s3", "amazon", "aws":
		src = h.S3
	case "gcs", "google":
		src = h.Google
	case "sqlite", "sqlite3":
		src = h.SQLite
	case "postgres", "pgx":
		src = h.Postgres
	default:
		src = h.Local
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Slot describes the selected history provider for the storage factory
func (h HistoryConfig) Slot() storage.Config {
	return storage.Config{Provider: h.Provider, Options: h.Options()}
}

func (h *HistoryConfig) setOptions(opts map[string]string) {
	switch h.Provider {
	case "s3", "amazon", "aws":
		h.S3 = opts
	case "gcs", "google":
		h.Google = opts
	case "sqlite", "sqlite3":
		h.SQLite = opts
	case "postgres", "pgx":
		h.Postgres = opts
	default:
		h.Local = opts
	}
}

// GetAddressString returns the address string for the server to listen on
func GetAddressString() string {
	return fmt.Sprintf("%s:%d", AppConfig.Server.Host, AppConfig.Server.Port)
}

// BackendTimeout returns the backend request timeout
func BackendTimeout() time.Duration {
	return time.Duration(AppConfig.Backend.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the upload ceiling in bytes
func MaxUploadBytes() int64 {
	return int64(AppConfig.Backend.MaxUploadMB) << 20
}

// DemoDelay returns how long the demo session pretends to process
func DemoDelay() time.Duration {
	return time.Duration(AppConfig.Features.DemoDelaySeconds) * time.Second
}

// AllowedOriginList splits server.allowedOrigins on commas
func AllowedOriginList() []string {
	var origins []string
	for _, o := range strings.Split(AppConfig.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
