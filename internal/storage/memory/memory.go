// Package memory is an in-process storage.Storage for tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/agromart/marketplace/internal/storage"
)

// Storage implements storage.Storage using an in-memory map.
type Storage struct {
	mu      sync.RWMutex
	files   map[string][]byte
	baseURL string
}

func New(baseURL string) *Storage {
	return &Storage{
		files:   make(map[string][]byte),
		baseURL: baseURL,
	}
}

func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	key, err := storage.CleanKey(input.Key)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, input.Data); err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	s.mu.Lock()
	s.files[key] = buf.Bytes()
	s.mu.Unlock()

	return &storage.UploadResult{Key: key, URL: s.URL(key)}, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[key]; !ok {
		return storage.ErrNotExist
	}
	delete(s.files, key)
	return nil
}

func (s *Storage) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := strings.TrimSuffix(prefix, "/")
	keys := []string{}
	for k := range s.files {
		if path.Dir(k) == dir {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Storage) URL(key string) string {
	return storage.JoinURL(s.baseURL, key)
}

// Has reports whether key is stored.
func (s *Storage) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[key]
	return ok
}

// Len is the number of stored objects.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
