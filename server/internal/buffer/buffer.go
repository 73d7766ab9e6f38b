package buffer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Default limits for a container.
const (
	DefaultThreshold   = 5
	DefaultTTL         = 30 * time.Second
	DefaultSweepPeriod = 2 * time.Second
)

// Buffer is the shared container. All methods are safe for concurrent use; a
// single RWMutex serialises mutations and lets reads share the lock.
type Buffer struct {
	mu        sync.RWMutex
	items     []Item
	next      int64
	threshold int
	ttl       time.Duration
	now       func() time.Time // injectable for deterministic tests
	onExpire  func(n int)
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithClock replaces the wall clock used to stamp items.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) { b.now = now }
}

// WithExpireObserver registers fn to be called by Run after every sweep that
// removed at least one item.
func WithExpireObserver(fn func(n int)) Option {
	return func(b *Buffer) { b.onExpire = fn }
}

// New creates an empty Buffer. Non-positive limits fall back to the defaults.
func New(threshold int, ttl time.Duration, opts ...Option) *Buffer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	b := &Buffer{
		threshold: threshold,
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Produce tags a new item with the next counter value, appends it at the tail
// and returns the resulting values, oldest first.
func (b *Buffer) Produce() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.items = append(b.items, Item{Value: b.next, InsertedAt: b.now()})
	return b.valuesLocked()
}

// Consume removes one item according to the current occupancy and returns the
// remaining values. Consuming from an empty container is a no-op.
func (b *Buffer) Consume() []int64 {
	_, _, values := b.consume()
	return values
}

// ConsumeItem behaves like Consume and also reports the removed item and the
// policy that selected it. p is PolicyNone when the container was empty.
func (b *Buffer) ConsumeItem() (removed Item, p Policy, remaining []int64) {
	return b.consume()
}

func (b *Buffer) consume() (Item, Policy, []int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.items)
	p := PolicyFor(n, b.threshold)
	var removed Item
	switch p {
	case PolicyStack:
		removed = b.items[n-1]
		b.items[n-1] = Item{}
		b.items = b.items[:n-1]
	case PolicyQueue:
		removed = b.items[0]
		b.items = b.items[1:]
	}
	return removed, p, b.valuesLocked()
}

// Snapshot returns the current values in insertion order.
func (b *Buffer) Snapshot() []int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.valuesLocked()
}

// State returns the values, threshold and TTL from a single read, so the
// three always belong to the same configuration.
func (b *Buffer) State() (values []int64, threshold int, ttl time.Duration) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.valuesLocked(), b.threshold, b.ttl
}

// Items returns a copy of the held items in insertion order.
func (b *Buffer) Items() []Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Item, len(b.items))
	copy(out, b.items)
	return out
}

// IsEmpty reports whether the container holds no items.
func (b *Buffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items) == 0
}

// Len returns the number of items currently held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Threshold returns the occupancy watermark.
func (b *Buffer) Threshold() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.threshold
}

// TTL returns the expiry age used by Expire.
func (b *Buffer) TTL() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ttl
}

// Policy returns the policy the next Consume would apply.
func (b *Buffer) Policy() Policy {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return PolicyFor(len(b.items), b.threshold)
}

// Reconfigure replaces the threshold and TTL. Non-positive values keep the
// current setting.
func (b *Buffer) Reconfigure(threshold int, ttl time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if threshold > 0 {
		b.threshold = threshold
	}
	if ttl > 0 {
		b.ttl = ttl
	}
}

// Expire removes every item at the head whose age at now is at least the TTL
// and returns how many were removed. Items are stamped in insertion order, so
// the scan stops at the first survivor.
func (b *Buffer) Expire(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := 0
	for i < len(b.items) && b.items[i].age(now) >= b.ttl {
		b.items[i] = Item{}
		i++
	}
	b.items = b.items[i:]
	return i
}

// Run starts the expiry loop, calling Expire every period. Run blocks until
// ctx is cancelled.
func (b *Buffer) Run(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = DefaultSweepPeriod
	}
	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n := b.Expire(b.now())
			if n == 0 {
				continue
			}
			slog.Debug("buffer: expired items", "count", n)
			if b.onExpire != nil {
				b.onExpire(n)
			}
		}
	}
}

// valuesLocked copies item values; callers must hold b.mu.
func (b *Buffer) valuesLocked() []int64 {
	out := make([]int64, len(b.items))
	for i, it := range b.items {
		out[i] = it.Value
	}
	return out
}
