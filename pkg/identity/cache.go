package identity

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/uhyunpark/nostr-signerd/pkg/util"
)

// Source resolves an identity from scratch.
type Source interface {
	Resolve(ctx context.Context) (Identity, error)
}

// Cache holds the resolved identity for the lifetime of the process.
//
// Concurrent Get calls before the first resolution completes share one
// in-flight resolution and all observe its result. A failed resolution is
// not cached.
type Cache struct {
	source Source
	logger *zap.SugaredLogger

	mu       sync.RWMutex
	identity *Identity

	flight singleflight.Group
}

func NewCache(source Source, logger *zap.SugaredLogger) *Cache {
	return &Cache{source: source, logger: util.OrNop(logger)}
}

// Get returns the cached identity, resolving it first if needed.
func (c *Cache) Get(ctx context.Context) (Identity, error) {
	if id, ok := c.Cached(); ok {
		return id, nil
	}

	ch := c.flight.DoChan("identity", func() (interface{}, error) {
		if id, ok := c.Cached(); ok {
			return id, nil
		}
		// detached: one waiter's cancellation must not fail the others
		id, err := c.source.Resolve(context.WithoutCancel(ctx))
		if err != nil {
			return Identity{}, err
		}
		c.mu.Lock()
		c.identity = &id
		c.mu.Unlock()
		return id, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Identity{}, res.Err
		}
		return res.Val.(Identity), nil
	case <-ctx.Done():
		return Identity{}, ctx.Err()
	}
}

// Cached returns the identity without resolving.
func (c *Cache) Cached() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return Identity{}, false
	}
	return *c.identity, true
}

// Reset forgets the identity; the next Get resolves again.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.identity = nil
	c.mu.Unlock()
	c.logger.Infow("identity_cache_reset")
}
