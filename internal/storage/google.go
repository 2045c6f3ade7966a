package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// GoogleCloudStorage keeps each slot as an object in a GCS bucket
type GoogleCloudStorage struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGoogleCloudStorage creates a new Google Cloud Storage provider
func NewGoogleCloudStorage() *GoogleCloudStorage {
	return &GoogleCloudStorage{}
}

// Initialize sets up the Google Cloud Storage with configuration.
// Credentials come from credentialFile, a short lived accessToken, or the environment.
func (g *GoogleCloudStorage) Initialize(config map[string]string) error {
	bucketName, ok := config["bucket"]
	if !ok || bucketName == "" {
		return fmt.Errorf("bucket is required for Google Cloud Storage")
	}
	g.bucketName = bucketName
	g.prefix = config["prefix"]

	var opts []option.ClientOption
	if credFile, ok := config["credentialFile"]; ok && credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	} else if token, ok := config["accessToken"]; ok && token != "" {
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: token,
			TokenType:   "Bearer",
		})))
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create Google Cloud Storage client: %w", err)
	}
	g.client = client
	return nil
}

func (g *GoogleCloudStorage) object(key string) *storage.ObjectHandle {
	return g.client.Bucket(g.bucketName).Object(g.prefix + key + ".json")
}

// Load reads the slot object
func (g *GoogleCloudStorage) Load(ctx context.Context, key string) ([]byte, error) {
	reader, err := g.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open slot from GCS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read slot from GCS: %w", err)
	}
	return data, nil
}

// Save writes the slot object
func (g *GoogleCloudStorage) Save(ctx context.Context, key string, data []byte) error {
	writer := g.object(key).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write slot to GCS: %w", err)
	}

	// Close finalizes the upload
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize slot upload to GCS: %w", err)
	}
	return nil
}

// Delete removes the slot object
func (g *GoogleCloudStorage) Delete(ctx context.Context, key string) error {
	err := g.object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete slot from GCS: %w", err)
	}
	return nil
}

// Close closes the GCS client
func (g *GoogleCloudStorage) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
