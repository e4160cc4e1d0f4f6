// Package storage abstracts where uploaded product images and templates
// live. Keys are slash-separated relative paths such as
// "products/<id>/<file>.jpg".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotExist is returned when a key has no stored object.
var ErrNotExist = errors.New("storage: object does not exist")

// Storage defines the interface for file storage operations.
type Storage interface {
	// Upload stores a file under input.Key, replacing any existing object.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Delete removes the object at key, or returns ErrNotExist.
	Delete(ctx context.Context, key string) error

	// List returns the keys directly under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// URL returns the public URL for key.
	URL(key string) string
}

// UploadInput holds the parameters for uploading a file.
type UploadInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// UploadResult holds the result of a successful upload.
type UploadResult struct {
	Key string
	URL string
}

// CleanKey normalises key and rejects absolute paths and keys that would
// escape the storage root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.ContainsRune(key, '\\') || strings.ContainsRune(key, 0) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	cleaned := path.Clean(key)
	if path.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}

// JoinURL joins a base URL and a key with exactly one slash.
func JoinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
