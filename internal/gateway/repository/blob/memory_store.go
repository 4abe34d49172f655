package blob

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memoryObject),
	}
}

func (s *MemoryStore) Upload(_ context.Context, key string, content []byte, contentType string) (Object, error) {
	if s == nil {
		return Object{}, fmt.Errorf("store is nil")
	}
	key = normalizeKey(key)
	if key == "" {
		return Object{}, fmt.Errorf("key is required")
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultContentType
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = memoryObject{data: append([]byte(nil), content...), contentType: contentType}
	return Object{Key: key, ContentType: contentType, Size: int64(len(content))}, nil
}

func (s *MemoryStore) Download(_ context.Context, key string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	key = normalizeKey(key)
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryStore) Stat(_ context.Context, key string) (Object, error) {
	if s == nil {
		return Object{}, fmt.Errorf("store is nil")
	}
	key = normalizeKey(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.data[key]
	if !ok {
		return Object{}, ErrNotFound
	}
	return Object{Key: key, ContentType: obj.contentType, Size: int64(len(obj.data))}, nil
}

// URL is unsupported for the in-memory store; callers fall back to the download route.
func (s *MemoryStore) URL(context.Context, string) (string, error) {
	return "", nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
