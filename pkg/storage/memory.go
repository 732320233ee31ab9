package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// Memory keeps objects in process memory. Useful for development and tests.
type Memory struct {
	objects map[string]memoryObject
	baseURL string
	mu      sync.RWMutex
}

type memoryObject struct {
	contentType string
	data        []byte
}

// NewMemory creates an empty store whose URLs are baseURL + "/" + key.
func NewMemory(baseURL string) *Memory {
	return &Memory{objects: make(map[string]memoryObject), baseURL: baseURL}
}

func (m *Memory) Put(_ context.Context, r io.Reader, opts ...Option) (*Object, error) {
	var o putOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyObject
	}

	ct := o.contentType
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	key := buildKey(o)

	m.mu.Lock()
	m.objects[key] = memoryObject{contentType: ct, data: data}
	m.mu.Unlock()

	return &Object{Key: key, ContentType: ct, Size: int64(len(data))}, nil
}

func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	return m.baseURL + "/" + key, nil
}

var _ Storage = (*Memory)(nil)
