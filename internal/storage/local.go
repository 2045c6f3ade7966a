package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// LocalStorage keeps each slot as a file under a base directory
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage provider
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Initialize sets up the local storage with configuration
func (l *LocalStorage) Initialize(config map[string]string) error {
	if path, ok := config["basePath"]; ok && path != "" {
		l.basePath = path
	} else {
		l.basePath = "./data" // Default storage path
	}

	if err := os.MkdirAll(l.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return nil
}

func (l *LocalStorage) path(key string) string {
	return filepath.Join(l.basePath, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

// Load reads the slot file
func (l *LocalStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}
	return data, nil
}

// Save writes the slot through a temp file and a rename so readers never see a partial record
func (l *LocalStorage) Save(ctx context.Context, key string, data []byte) error {
	target := l.path(key)
	tmp, err := os.CreateTemp(l.basePath, ".slot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close slot %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace slot %s: %w", key, err)
	}
	return nil
}

// Delete removes the slot file
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	err := os.Remove(l.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}
