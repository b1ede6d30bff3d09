// Package kv provides the key-value text stores the persistence gateway
// writes its slot to.
package kv

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidKey    = errors.New("invalid key")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrClosed        = errors.New("store closed")
)

// Store is a flat key-value store of byte values.
type Store interface {
	// Get returns ErrNotFound when key has never been set or was deleted.
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

const (
	BackendMemory = "memory"
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) || strings.Trim(key, ".") == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Open returns the store for backend. path is a directory for "dir" and a
// database file for "sqlite"; it is ignored for "memory".
func Open(backend, path string) (Store, error) {
	switch strings.TrimSpace(strings.ToLower(backend)) {
	case BackendMemory:
		return NewMemory(0), nil
	case "", BackendDir, "file":
		return NewDir(path)
	case BackendSQLite, "sqlite3":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
