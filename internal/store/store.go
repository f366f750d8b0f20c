// Package store is the key-value persistence behind the cart. Values are
// opaque text; callers marshal and unmarshal JSON themselves.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrStorageFailure matches every error a backend reports for a failed read,
// write or removal.
var ErrStorageFailure = errors.New("storage failure")

type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

func fail(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Key: key, Err: err}
}

type Store interface {
	// Get returns ok=false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove is a no-op for absent keys.
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Backend is a Store that owns a connection.
type Backend interface {
	Store
	Close() error
}

const DefaultPrefix = "yakebda"

// Keys names the three persisted entries of a session.
type Keys struct {
	Cart      string
	LastOrder string
	OrderTime string
}

func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{
		Cart:      prefix + "_cart",
		LastOrder: prefix + "_last_order",
		OrderTime: prefix + "_order_time",
	}
}
