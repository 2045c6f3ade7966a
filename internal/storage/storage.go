// Package storage provides keyed slots for small persisted records on several backends
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when nothing is stored under the key
var ErrNotFound = errors.New("slot not found")

// Provider defines the interface for all slot implementations.
// A slot holds one opaque record per key; Save replaces it wholesale.
type Provider interface {
	// Initialize sets up the provider with configuration
	Initialize(config map[string]string) error

	// Load returns the record stored under key or ErrNotFound
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the record stored under key
	Save(ctx context.Context, key string, data []byte) error

	// Delete removes the record. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by providers that hold connections
type Closer interface {
	Close() error
}

// Config represents common configuration for slot providers
type Config struct {
	// Provider type (e.g., "local", "s3", "gcs", "sqlite", "postgres")
	Provider string `json:"provider"`

	// Additional provider-specific configurations
	Options map[string]string `json:"options"`
}

// Close releases the provider's resources when it holds any
func Close(p Provider) error {
	if c, ok := p.(Closer); ok {
		return c.Close()
	}
	return nil
}
