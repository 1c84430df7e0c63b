package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound se devuelve cuando un documento todavía no existe en el backend.
var ErrNotFound = errors.New("not found")

// Backend guarda documentos JSON completos por nombre de store.
// Cada Save reemplaza el documento entero (no hay escrituras parciales).
type Backend interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, body []byte) error
	Close() error
}

// MemoryBackend se usa en tests y con STORE_DRIVER=memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: map[string][]byte{}}
}

func (m *MemoryBackend) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.docs[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryBackend) Save(_ context.Context, name string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[name] = append([]byte(nil), body...)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

