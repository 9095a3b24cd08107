package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend keeps one JSON file per collection under dir. Each collection
// is read once and then served from memory; every write rewrites its file.
type FileBackend struct {
	mu    sync.RWMutex
	dir   string
	cache map[string]map[string]json.RawMessage
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{
		dir:   dir,
		cache: map[string]map[string]json.RawMessage{},
	}, nil
}

func (b *FileBackend) path(collection string) string {
	return filepath.Join(b.dir, collection+".json")
}

// loadLocked requires b.mu held for writing.
func (b *FileBackend) loadLocked(collection string) (map[string]json.RawMessage, error) {
	if c, ok := b.cache[collection]; ok {
		return c, nil
	}

	c := map[string]json.RawMessage{}
	raw, err := os.ReadFile(b.path(collection))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", b.path(collection), err)
		}
		if c == nil {
			c = map[string]json.RawMessage{}
		}
	}
	b.cache[collection] = c
	return c, nil
}

func (b *FileBackend) saveLocked(collection string) error {
	raw, err := json.MarshalIndent(b.cache[collection], "", "  ")
	if err != nil {
		return err
	}
	tmp := b.path(collection) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, b.path(collection))
}

func (b *FileBackend) List(_ context.Context, collection string) ([][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.loadLocked(collection)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(c))
	for _, body := range c {
		out = append(out, append([]byte(nil), body...))
	}
	return out, nil
}

func (b *FileBackend) Get(_ context.Context, collection, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.loadLocked(collection)
	if err != nil {
		return nil, err
	}
	body, ok := c[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

func (b *FileBackend) Put(_ context.Context, collection, id string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.loadLocked(collection)
	if err != nil {
		return err
	}
	prev, existed := c[id]
	c[id] = append(json.RawMessage(nil), body...)
	if err := b.saveLocked(collection); err != nil {
		if existed {
			c[id] = prev
		} else {
			delete(c, id)
		}
		return err
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, collection, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.loadLocked(collection)
	if err != nil {
		return err
	}
	prev, ok := c[id]
	if !ok {
		return ErrNotFound
	}
	delete(c, id)
	if err := b.saveLocked(collection); err != nil {
		c[id] = prev
		return err
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
