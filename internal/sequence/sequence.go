// Package sequence hands out unique, strictly increasing integers per named
// sequence and renders them as human-readable identifiers (TKT-000042).
//
// Atomicity always comes from the backing store: a single UPSERT ... RETURNING
// statement, a MySQL LAST_INSERT_ID(expr) upsert or a Redis INCR. The
// allocator never reads a value and writes it back, and it never caches
// counter values in process memory, so any number of processes can share a
// store safely.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.uber.org/atomic"
)

// CounterStore abstracts the persisted sequence_counter records.
type CounterStore interface {
	// Increment atomically adds one to the named counter, creating it at zero
	// first when it does not exist, and returns the new value. A failed call
	// must leave the stored value untouched.
	Increment(ctx context.Context, name string) (int64, error)
	// Current returns the last issued value, or 0 for an unseen name.
	Current(ctx context.Context, name string) (int64, error)
}

// AllocatedID is the result of an allocation.
type AllocatedID struct {
	Sequence string `json:"sequence"`
	Value    int64  `json:"value"`
	Display  string `json:"display"`
}

// Allocator issues sequence values from a CounterStore. It does not retry:
// every call is all-or-nothing and the caller decides whether to try again.
type Allocator struct {
	store   CounterStore
	metrics *Metrics
	logger  *log.Logger
	debug   *atomic.Bool
	timeout time.Duration
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMetrics records allocation counts and latency.
func WithMetrics(m *Metrics) Option {
	return func(a *Allocator) { a.metrics = m }
}

// WithLogger injects a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Allocator) { a.logger = l }
}

// WithDebug logs every issued value.
func WithDebug(on bool) Option {
	return func(a *Allocator) { a.debug.Store(on) }
}

// WithTimeout bounds each store call. Zero leaves the caller's deadline alone.
// A deadline that fires after the store committed the increment reports
// ErrStorageUnavailable and leaves that value unused (a gap, never a duplicate).
func WithTimeout(d time.Duration) Option {
	return func(a *Allocator) { a.timeout = d }
}

// NewAllocator wraps store.
func NewAllocator(store CounterStore, opts ...Option) *Allocator {
	a := &Allocator{store: store, logger: log.Default(), debug: atomic.NewBool(false)}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = NewMetrics(nil)
	}
	return a
}

// SetDebug toggles per-allocation logging at runtime (config reload).
func (a *Allocator) SetDebug(on bool) { a.debug.Store(on) }

// Next returns the next value of the named sequence. The first call for an
// unseen name returns 1. Errors wrap ErrStorageUnavailable or ErrStorageError.
func (a *Allocator) Next(ctx context.Context, name string) (int64, error) {
	if name == "" {
		a.metrics.failed(name, ErrInvalidSequenceName)
		return 0, ErrInvalidSequenceName
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	start := time.Now()
	v, err := a.store.Increment(ctx, name)
	a.metrics.observe(time.Since(start))
	if err != nil {
		if !errors.Is(err, ErrStorageUnavailable) && !errors.Is(err, ErrStorageError) {
			err = storageError(err)
		}
		a.metrics.failed(name, err)
		a.logger.Printf("⚠️  sequence %s: allocation failed: %v", name, err)
		return 0, fmt.Errorf("sequence %q: %w", name, err)
	}
	if v <= 0 {
		err = storageError(fmt.Errorf("counter returned non-positive value %d", v))
		a.metrics.failed(name, err)
		return 0, fmt.Errorf("sequence %q: %w", name, err)
	}
	a.metrics.allocated(name)
	if a.debug.Load() {
		a.logger.Printf("🔢 sequence %s issued %d", name, v)
	}
	return v, nil
}

// Allocate returns the next value of name together with its display form.
func (a *Allocator) Allocate(ctx context.Context, name string, f Format) (AllocatedID, error) {
	v, err := a.Next(ctx, name)
	if err != nil {
		return AllocatedID{}, err
	}
	return AllocatedID{Sequence: name, Value: v, Display: f.Display(v)}, nil
}

// Current reports the last issued value without changing it.
func (a *Allocator) Current(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, ErrInvalidSequenceName
	}
	v, err := a.store.Current(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrStorageUnavailable) && !errors.Is(err, ErrStorageError) {
			err = storageError(err)
		}
		return 0, fmt.Errorf("sequence %q: %w", name, err)
	}
	return v, nil
}
