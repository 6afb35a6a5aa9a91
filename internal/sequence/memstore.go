package sequence

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// MemoryStore keeps counters in process memory. Increments are lock-free and
// atomic, but values are lost on restart and are not shared between
// processes, so it is only suitable for development and tests.
type MemoryStore struct {
	counters sync.Map // name -> *atomic.Int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) counter(name string) *atomic.Int64 {
	if c, ok := m.counters.Load(name); ok {
		return c.(*atomic.Int64)
	}
	c, _ := m.counters.LoadOrStore(name, atomic.NewInt64(0))
	return c.(*atomic.Int64)
}

// Increment implements CounterStore.
func (m *MemoryStore) Increment(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}
	return m.counter(name).Inc(), nil
}

// Current implements CounterStore.
func (m *MemoryStore) Current(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}
	if c, ok := m.counters.Load(name); ok {
		return c.(*atomic.Int64).Load(), nil
	}
	return 0, nil
}
