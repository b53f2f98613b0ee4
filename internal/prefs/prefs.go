// Package prefs is a small string key-value preference store abstraction
// with an optional encrypting decorator.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrKeyUnavailable is returned when the master key cannot be loaded.
var ErrKeyUnavailable = errors.New("encryption key unavailable")

// Store persists string values under string keys. PutAll writes every
// value or none of them.
type Store interface {
	Put(ctx context.Context, key, value string) error
	PutAll(ctx context.Context, values map[string]string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Contains(ctx context.Context, key string) (bool, error)
}

// StorageError reports an inaccessible preference store.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("preferences %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("preferences %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) PutAll(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Contains(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.values[key]
	return ok, nil
}

// Raw returns the stored map contents. Used to inspect what actually lands
// in the backing store.
func (m *Memory) Raw() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
