// Package kv provides the local persistence medium: a flat string key/value
// store with last-write-wins semantics.
package kv

import "context"

// Store is the persistence boundary shared by the outing statistics slot and
// the first-run flags.
// Error Contract: Get returns sentinel.ErrNotFound (wrapped) when the key is absent;
// Remove of an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
