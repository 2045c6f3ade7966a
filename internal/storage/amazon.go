package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// AmazonS3Storage keeps each slot as an object in an S3 bucket
type AmazonS3Storage struct {
	bucket   string
	prefix   string
	s3Client *s3.S3
}

// NewAmazonS3Storage creates a new Amazon S3 storage provider
func NewAmazonS3Storage() *AmazonS3Storage {
	return &AmazonS3Storage{}
}

// Initialize sets up the Amazon S3 storage with configuration
func (a *AmazonS3Storage) Initialize(config map[string]string) error {
	region, ok := config["region"]
	if !ok || region == "" {
		return fmt.Errorf("region is required for Amazon S3 storage")
	}

	bucket, ok := config["bucket"]
	if !ok || bucket == "" {
		return fmt.Errorf("bucket is required for Amazon S3 storage")
	}
	a.bucket = bucket
	a.prefix = config["prefix"]

	awsConfig := &aws.Config{Region: aws.String(region)}

	// Explicit credentials win over env/instance profile
	accessKey, hasAccessKey := config["accessKey"]
	secretKey, hasSecretKey := config["secretKey"]
	if hasAccessKey && hasSecretKey {
		awsConfig.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}
	// S3 compatible servers such as MinIO
	if endpoint := config["endpoint"]; endpoint != "" {
		awsConfig.Endpoint = aws.String(endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return fmt.Errorf("failed to create AWS session: %w", err)
	}

	a.s3Client = s3.New(sess)
	return nil
}

func (a *AmazonS3Storage) key(key string) string {
	return a.prefix + key + ".json"
}

// Load gets the slot object
func (a *AmazonS3Storage) Load(ctx context.Context, key string) ([]byte, error) {
	output, err := a.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(key)),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve slot from S3: %w", err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read slot from S3: %w", err)
	}
	return data, nil
}

// Save puts the slot object
func (a *AmazonS3Storage) Save(ctx context.Context, key string, data []byte) error {
	_, err := a.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.key(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload slot to S3: %w", err)
	}
	return nil
}

// Delete removes the slot object
func (a *AmazonS3Storage) Delete(ctx context.Context, key string) error {
	_, err := a.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete slot from S3: %w", err)
	}
	return nil
}
