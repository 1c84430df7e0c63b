package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Dict es un mapa string -> valor JSON cargado entero en memoria.
// Las mutaciones no persisten hasta llamar Save.
type Dict struct {
	mu      sync.RWMutex
	name    string
	backend Backend
	data    map[string]json.RawMessage
}

// OpenDict carga el documento; si no existe arranca vacío.
func OpenDict(ctx context.Context, b Backend, name string) (*Dict, error) {
	d := &Dict{name: name, backend: b, data: map[string]json.RawMessage{}}
	raw, err := b.Load(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(raw, &d.data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if d.data == nil {
		d.data = map[string]json.RawMessage{}
	}
	return d, nil
}

// Get decodifica el valor en out. ok=false si la clave no existe.
func (d *Dict) Get(key string, out any) (bool, error) {
	d.mu.RLock()
	raw, ok := d.data[key]
	d.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("%s[%s]: %w", d.name, key, err)
	}
	return true, nil
}

func (d *Dict) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s[%s]: %w", d.name, key, err)
	}
	d.mu.Lock()
	d.data[key] = raw
	d.mu.Unlock()
	return nil
}

func (d *Dict) Contains(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.data[key]
	return ok
}

// Remove devuelve true si la clave existía.
func (d *Dict) Remove(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.data[key]; !ok {
		return false
	}
	delete(d.data, key)
	return true
}

func (d *Dict) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.data))
	for k := range d.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d *Dict) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.data)
}

func (d *Dict) Clear() {
	d.mu.Lock()
	d.data = map[string]json.RawMessage{}
	d.mu.Unlock()
}

// Save escribe el documento completo.
func (d *Dict) Save(ctx context.Context) error {
	d.mu.RLock()
	body, err := json.MarshalIndent(d.data, "", "  ")
	d.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.name, err)
	}
	return d.backend.Save(ctx, d.name, body)
}
