// Package store is the entity store: typed collections of JSON documents on
// top of a pluggable backend.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("entity not found")

// Backend persists raw JSON documents keyed by collection and id.
type Backend interface {
	List(ctx context.Context, collection string) ([][]byte, error)
	Get(ctx context.Context, collection, id string) ([]byte, error)
	Put(ctx context.Context, collection, id string, body []byte) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}
