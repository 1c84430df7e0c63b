package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// List es una lista ordenada de ids (snowflakes) persistida como array JSON.
type List struct {
	mu      sync.RWMutex
	name    string
	backend Backend
	items   []string
}

func OpenList(ctx context.Context, b Backend, name string) (*List, error) {
	l := &List{name: name, backend: b}
	raw, err := b.Load(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	items, err := DecodeIDList(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	l.items = items
	return l, nil
}

func (l *List) Contains(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, it := range l.items {
		if it == id {
			return true
		}
	}
	return false
}

func (l *List) Append(id string) {
	l.mu.Lock()
	l.items = append(l.items, id)
	l.mu.Unlock()
}

// Remove saca la primera ocurrencia; false si no estaba.
func (l *List) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, it := range l.items {
		if it == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

func (l *List) Values() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.items...)
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List) Save(ctx context.Context) error {
	l.mu.RLock()
	items := l.items
	if items == nil {
		items = []string{}
	}
	body, err := json.Marshal(items)
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode %s: %w", l.name, err)
	}
	return l.backend.Save(ctx, l.name, body)
}

// DecodeIDList acepta ids como string o número (los json viejos guardaban ints).
func DecodeIDList(raw []byte) ([]string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		id, err := DecodeID(e)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// DecodeID lee un snowflake escrito como "123" o 123.
func DecodeID(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case json.Number:
		return t.String(), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("id inválido: %s", string(raw))
	}
}
