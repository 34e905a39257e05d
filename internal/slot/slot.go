// Package slot provides durable key-value slots: the storage a cart survives
// restarts in. Every driver stores opaque bytes under string keys.
package slot

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("slot key not found")

// Slot is a durable key-value store.
type Slot interface {
	// Get returns ErrNotFound when key was never written or has been deleted.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetIfAbsent writes value only when key is not present and reports whether it did.
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
}

type namespaced struct {
	base   Slot
	prefix string
}

// Namespaced scopes every key of base under ns, so several carts can share one backend.
func Namespaced(base Slot, ns string) Slot {
	return namespaced{base: base, prefix: ns + ":"}
}

func (n namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.base.Get(ctx, n.prefix+key)
}

func (n namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.base.Set(ctx, n.prefix+key, value)
}

func (n namespaced) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	return n.base.SetIfAbsent(ctx, n.prefix+key, value)
}

func (n namespaced) Delete(ctx context.Context, key string) error {
	return n.base.Delete(ctx, n.prefix+key)
}
