package port

import (
	"context"
	"io"
)

// ObjectStore stores uploaded images in the configured bucket.
type ObjectStore interface {
	// Put uploads the content under key and returns the public URL.
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL extracts the object key from a previously returned public
	// URL; ok is false for foreign URLs (e.g. seeded defaults).
	KeyFromURL(url string) (key string, ok bool)
}
