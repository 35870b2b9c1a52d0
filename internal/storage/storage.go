// Package storage defines the asynchronous key-value backend the
// checkpoint and engine-status stores persist through.
package storage

import "context"

// Backend is a durable key-value store. Every key is independent: writes
// to different keys never race with each other, which is why checkpoints
// are stored one key per job id rather than as a single map value.
type Backend interface {
	// Get returns the value for key, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// List returns all entries whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}
