package store

import (
	"fmt"
	"strings"
)

// Open builds the backend named by kind: memory, file or sqlite.
func Open(kind, dataDir, sqlitePath string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "memory":
		return NewMemoryBackend(), nil
	case "", "file":
		b, err := NewFileBackend(dataDir)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "sqlite":
		b, err := NewSQLiteBackend(sqlitePath)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}
