// Package eventbus defines the port for broadcasting cache invalidations
// between processes sharing one store.
package eventbus

import (
	"context"

	"github.com/Strob0t/Tally/internal/cache"
)

// SubjectInvalidate is appended to the configured subject prefix.
const SubjectInvalidate = "invalidate"

// Target names a key, or a key prefix, within a cache category.
type Target struct {
	Category cache.Category `json:"category"`
	Key      string         `json:"key"`
}

// Invalidation is the set of cache entries a write made stale.
type Invalidation struct {
	// Origin identifies the publishing process so it can skip its own messages.
	Origin   string   `json:"origin"`
	Keys     []Target `json:"keys,omitempty"`
	Prefixes []Target `json:"prefixes,omitempty"`
	All      bool     `json:"all,omitempty"`
}

// Empty reports whether the invalidation touches nothing.
func (i *Invalidation) Empty() bool {
	return !i.All && len(i.Keys) == 0 && len(i.Prefixes) == 0
}

// Handler processes an invalidation received from a peer.
type Handler func(ctx context.Context, inv Invalidation) error

// Bus publishes and receives invalidations.
type Bus interface {
	// Publish broadcasts inv to all subscribers.
	Publish(ctx context.Context, inv Invalidation) error

	// Subscribe registers a handler for invalidations.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, handler Handler) (cancel func(), err error)

	// Close shuts down the bus connection.
	Close() error
}

// Nop is a Bus that drops everything. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Invalidation) error { return nil }

func (Nop) Subscribe(context.Context, Handler) (func(), error) { return func() {}, nil }

func (Nop) Close() error { return nil }
