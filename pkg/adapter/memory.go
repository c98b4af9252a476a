package adapter

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// memoryStorage is an in-process Storage used by the local serve mode and
// by tests. Semantics mirror the object store: whole-object overwrite,
// list-by-prefix, idempotent delete.
type memoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStorage creates an empty in-memory Storage
func NewMemoryStorage() Storage {
	return &memoryStorage{
		objects: make(map[string][]byte),
	}
}

func (s *memoryStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return nil
}

func (s *memoryStorage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, goerr.Wrap(ErrObjectNotExist, "no such object", goerr.Value("key", key))
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (s *memoryStorage) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memoryStorage) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.objects, key)
	}
	return nil
}

func (s *memoryStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.objects[key]; !ok {
		return "", goerr.Wrap(ErrObjectNotExist, "no such object", goerr.Value("key", key))
	}
	return "memory://" + key, nil
}
