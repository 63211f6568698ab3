package blob

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

const (
	minPresignTTL = time.Second
	maxPresignTTL = 7 * 24 * time.Hour
)

// Store is the object storage the pipeline reads sources from and writes
// datasets to. Clients transfer bytes directly through presigned URLs.
type Store interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, data []byte, contentType string) error
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// PresignDownload sets the attachment filename when filename is not empty.
	PresignDownload(ctx context.Context, key string, ttl time.Duration, filename string) (string, error)
	Type() string
}

func validateTTL(ttl time.Duration) error {
	if ttl < minPresignTTL || ttl > maxPresignTTL {
		return fmt.Errorf("presign ttl %s out of range [%s, %s]", ttl, minPresignTTL, maxPresignTTL)
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.New("object key is required")
	}
	return nil
}

func contentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}
