package store

import (
	"context"
	"sync"
)

type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string]map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: map[string]map[string][]byte{}}
}

func (b *MemoryBackend) List(_ context.Context, collection string) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([][]byte, 0, len(b.docs[collection]))
	for _, body := range b.docs[collection] {
		out = append(out, append([]byte(nil), body...))
	}
	return out, nil
}

func (b *MemoryBackend) Get(_ context.Context, collection, id string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	body, ok := b.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

func (b *MemoryBackend) Put(_ context.Context, collection, id string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.docs[collection]
	if !ok {
		c = map[string][]byte{}
		b.docs[collection] = c
	}
	c[id] = append([]byte(nil), body...)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, collection, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.docs[collection][id]; !ok {
		return ErrNotFound
	}
	delete(b.docs[collection], id)
	return nil
}

func (b *MemoryBackend) Close() error { return nil }
