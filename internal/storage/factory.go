package storage

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Factory is responsible for creating slot providers
type Factory struct {
	providers map[string]func() Provider
	mu        sync.RWMutex
	// Track unavailable providers
	unavailableProviders map[string]string
	log                  *zap.SugaredLogger
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(log *zap.SugaredLogger) *Factory {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Factory{
		providers:            make(map[string]func() Provider),
		unavailableProviders: make(map[string]string),
		log:                  log,
	}
}

// RegisterProvider registers a custom provider constructor with the factory
func (f *Factory) RegisterProvider(name string, constructor func() Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[name] = constructor
}

// MarkProviderUnavailable marks a provider type as unavailable with a reason
func (f *Factory) MarkProviderUnavailable(providerType, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailableProviders[providerType] = reason
	f.log.Warnw("storage provider marked as unavailable", "provider", providerType, "reason", reason)
}

// IsProviderAvailable checks if a provider type is available
func (f *Factory) IsProviderAvailable(providerType string) (bool, string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	reason, unavailable := f.unavailableProviders[providerType]
	return !unavailable, reason
}

// Create creates the provider described by cfg
func (f *Factory) Create(cfg Config) (Provider, error) {
	return f.CreateProvider(cfg.Provider, cfg.Options)
}

// CreateProvider creates and initializes a provider of the given type
func (f *Factory) CreateProvider(providerType string, config map[string]string) (Provider, error) {
	f.mu.RLock()
	if reason, unavailable := f.unavailableProviders[providerType]; unavailable {
		f.mu.RUnlock()
		return nil, fmt.Errorf("%s provider is currently unavailable: %s", providerType, reason)
	}
	constructor, custom := f.providers[providerType]
	f.mu.RUnlock()

	var provider Provider

	switch {
	case custom:
		provider = constructor()
	case providerType == "local" || providerType == "":
		provider = NewLocalStorage()
	case providerType == "s3" || providerType == "amazon" || providerType == "aws":
		provider = NewAmazonS3Storage()
	case providerType == "gcs" || providerType == "google":
		provider = NewGoogleCloudStorage()
	case providerType == "sqlite" || providerType == "sqlite3":
		provider = NewSQLStorage(DialectSQLite)
	case providerType == "postgres" || providerType == "pgx":
		provider = NewSQLStorage(DialectPostgres)
	default:
		return nil, fmt.Errorf("unsupported storage provider type: %s", providerType)
	}

	if err := provider.Initialize(config); err != nil {
		f.MarkProviderUnavailable(providerType, err.Error())
		return nil, fmt.Errorf("failed to initialize %s storage provider: %w", providerType, err)
	}

	return provider, nil
}
