/*
Package storage provides the file storage service backing chat
attachments. Uploads are streamed server-side into an S3-compatible
bucket; downloads are served through short-lived presigned URLs.
*/
package storage

import (
	"context"
	"io"
	"time"
)

// ServiceConfig holds the settings for the storage backend.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// StorageService is the public interface of the file storage backend.
type StorageService interface {
	// Upload streams the object body to the given key.
	Upload(ctx context.Context, key string, mimeType string, body io.Reader) error

	// PresignDownload returns a time-limited URL for fetching the key.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)

	// Delete removes the object at the given key.
	Delete(ctx context.Context, key string) error
}

// NewStorageService returns the S3-compatible implementation.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}
