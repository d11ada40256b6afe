// Package storage provides durable key-value persistence for client-side
// state such as experiment variant assignments.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// KV persists opaque values under string keys. Values are written whole;
// there are no partial updates or transactions across keys.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
