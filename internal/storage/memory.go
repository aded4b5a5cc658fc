package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
)

var _ ProofStorage = (*Memory)(nil)

// Memory keeps proofs in process memory. It backs tests and local runs without a bucket.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (Object, error) {
	if key == "" {
		return Object{}, errors.New("storage key is required")
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, body)
	if err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()
	return Object{Key: key, URL: "memory://" + key, ContentType: contentType, Size: n}, nil
}

// Get returns a stored object.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	return b, ok
}
