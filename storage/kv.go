// Package storage provides the key-value persistence capability used by the
// cache and the endpoint registry.
//
// Every backend implements KV. A missing key is not an error: Get returns
// nil, nil.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// KV is a byte-oriented key-value store.
type KV interface {
	// Get returns the value for key, or nil if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Backend names accepted by configuration.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendNATS   = "nats"
)

// Backends lists every backend name.
var Backends = []string{BackendMemory, BackendFile, BackendBadger, BackendSQLite, BackendNATS}

// validKey rejects keys that are empty or could escape a directory.
func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
