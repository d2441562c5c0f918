package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stocktake/internal/core"
)

const (
	MinCacheTTL     = 10 * time.Second
	MaxCacheTTL     = 60 * time.Second
	DefaultCacheTTL = 30 * time.Second
)

// Cached wraps a Store and serves ReadAll from a short lived snapshot so
// bursts of reads cost one backend call. Every mutation drops the snapshot,
// so a read issued after a write always sees that write. The snapshot is
// local to this process; it is never shared between instances.
type Cached struct {
	inner Store

	mu        sync.Mutex
	snapshot  []core.Transaction
	haveSnap  bool
	expiresAt time.Time
	ttl       time.Duration
}

var (
	_ Store       = (*Cached)(nil)
	_ Invalidator = (*Cached)(nil)
)

// NewCached wraps inner with a read cache. The TTL is clamped between
// MinCacheTTL and MaxCacheTTL; zero selects DefaultCacheTTL.
func NewCached(inner Store, ttl time.Duration) *Cached {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	clamped := ttl
	if clamped < MinCacheTTL {
		clamped = MinCacheTTL
	}
	if clamped > MaxCacheTTL {
		clamped = MaxCacheTTL
	}
	if clamped != ttl {
		slog.Warn("Cache TTL outside supported range, clamped",
			"requested", ttl, "using", clamped)
	}
	return &Cached{inner: inner, ttl: clamped}
}

// ReadAll returns the cached snapshot while it is fresh. The lock is held
// across a backend refresh, so concurrent readers trigger one fetch and the
// rest wait for its result.
func (c *Cached) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveSnap && time.Now().Before(c.expiresAt) {
		return copyTxs(c.snapshot), nil
	}
	txs, err := c.inner.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	c.snapshot = copyTxs(txs)
	c.haveSnap = true
	c.expiresAt = time.Now().Add(c.ttl)
	return txs, nil
}

// Append invalidates the snapshot whether or not the write succeeded. A
// failed call can still have reached the backend, so serving the old
// snapshot afterwards would be a lie.
func (c *Cached) Append(ctx context.Context, tx core.Transaction) (string, error) {
	defer c.Invalidate()
	return c.inner.Append(ctx, tx)
}

func (c *Cached) RemoveLast(ctx context.Context) (core.Transaction, error) {
	defer c.Invalidate()
	return c.inner.RemoveLast(ctx)
}

func (c *Cached) Wipe(ctx context.Context) error {
	defer c.Invalidate()
	return c.inner.Wipe(ctx)
}

// Invalidate drops the snapshot so the next read hits the backend.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.haveSnap = false
	c.expiresAt = time.Time{}
}

func copyTxs(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	copy(out, in)
	return out
}
