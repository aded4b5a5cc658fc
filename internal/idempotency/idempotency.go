// Package idempotency remembers the outcome of requests carrying an Idempotency-Key.
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInProgress is returned while the first request for a key has not finished.
var ErrInProgress = errors.New("request with this idempotency key is still in progress")

const pendingMarker = "\x00pending"

// Store reserves keys and records the resource id each key produced.
type Store interface {
	// Begin reserves key. When the key was already used it returns the recorded
	// value and started=false, or ErrInProgress if the first request is still running.
	Begin(ctx context.Context, key string) (value string, started bool, err error)
	// Finish records the value produced for a reserved key.
	Finish(ctx context.Context, key, value string) error
	// Abort drops a reservation so the key can be retried.
	Abort(ctx context.Context, key string) error
}

// Memory is a process-local Store.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Begin(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		if e.value == pendingMarker {
			return "", false, ErrInProgress
		}
		return e.value, false, nil
	}
	m.entries[key] = memoryEntry{value: pendingMarker, expiresAt: now.Add(m.ttl)}
	return "", true, nil
}

func (m *Memory) Finish(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e.expiresAt = m.now().Add(m.ttl)
	}
	e.value = value
	m.entries[key] = e
	return nil
}

func (m *Memory) Abort(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
