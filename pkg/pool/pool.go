// Package pool provides a generic bounded object pool for short-lived
// allocations on the command hot path (command records, byte buffers,
// string builders).
//
// The pool is backed by a buffered channel: Acquire and Release are
// non-blocking and safe under arbitrary concurrent access from any number of
// producers and consumers. Items released above capacity are dropped and left
// to the garbage collector, so the pool never grows past its ceiling.
package pool

import "strings"

// Pool is a bounded multi-producer/multi-consumer reuse pool.
type Pool[T any] struct {
	items chan T

	// create constructs a fresh item when the pool is empty.
	create func() T

	// onAcquire resets an item before handing it out. May be nil.
	onAcquire func(T)

	// onRelease cleans an item before returning it to the pool. May be nil.
	onRelease func(T)
}

// Option configures a Pool.
type Option[T any] func(*Pool[T])

// WithAcquireHook sets a hook run on every item returned by Acquire,
// including freshly constructed ones.
func WithAcquireHook[T any](hook func(T)) Option[T] {
	return func(p *Pool[T]) { p.onAcquire = hook }
}

// WithReleaseHook sets a hook run on every item passed to Release, whether or
// not the item is retained.
func WithReleaseHook[T any](hook func(T)) Option[T] {
	return func(p *Pool[T]) { p.onRelease = hook }
}

// New creates a Pool with the given capacity and constructor.
//
// Panics if capacity is not positive or create is nil (programmer error).
func New[T any](capacity int, create func() T, opts ...Option[T]) *Pool[T] {
	if capacity <= 0 {
		panic("pool capacity must be positive")
	}
	if create == nil {
		panic("pool constructor cannot be nil")
	}

	p := &Pool[T]{
		items:  make(chan T, capacity),
		create: create,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns a pooled item after running the acquire hook, or a freshly
// constructed one if the pool is empty. Never blocks.
func (p *Pool[T]) Acquire() T {
	var item T
	select {
	case item = <-p.items:
	default:
		item = p.create()
	}
	if p.onAcquire != nil {
		p.onAcquire(item)
	}
	return item
}

// Release runs the release hook and returns the item to the pool. If the pool
// is at capacity the item is dropped and becomes eligible for collection.
// Never blocks.
func (p *Pool[T]) Release(item T) {
	if p.onRelease != nil {
		p.onRelease(item)
	}
	select {
	case p.items <- item:
	default:
		// Pool full; drop the item.
	}
}

// Len returns the current number of idle items in the pool.
func (p *Pool[T]) Len() int {
	return len(p.items)
}

// Cap returns the pool's capacity ceiling.
func (p *Pool[T]) Cap() int {
	return cap(p.items)
}

// Clear evicts all idle items, releasing them to the garbage collector.
// Used at shutdown.
func (p *Pool[T]) Clear() {
	for {
		select {
		case <-p.items:
		default:
			return
		}
	}
}

// NewBufferPool creates a pool of fixed-size byte buffers for network reads.
func NewBufferPool(capacity, bufferSize int) *Pool[[]byte] {
	return New(capacity, func() []byte {
		return make([]byte, bufferSize)
	})
}

// NewBuilderPool creates a pool of string builders used as per-connection
// line accumulators. Builders are reset on acquire.
func NewBuilderPool(capacity int) *Pool[*strings.Builder] {
	return New(capacity,
		func() *strings.Builder { return &strings.Builder{} },
		WithAcquireHook(func(b *strings.Builder) { b.Reset() }),
	)
}
