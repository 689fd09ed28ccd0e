// Package storage is the persistence boundary: one JSON document per
// sanitized key.
package storage

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get for an absent key. It is the expected
// cold-start case, not a failure.
var ErrNotFound = errors.New("storage: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, doc []byte) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// SanitizeKey maps an identity such as "openai/gpt-5.1" onto a key that is
// safe as a file name or object key.
func SanitizeKey(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.', c == '-', c == '_':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	key := b.String()
	if strings.Trim(key, ".") == "" {
		// "", "." and ".." would address the directory itself
		key = strings.Repeat("_", max(len(key), 1))
	}
	return key
}
