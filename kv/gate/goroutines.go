package gate

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// GoroutineGate coordinates goroutines sharing one process. The three locks
// are plain mutexes; the reader slot pool is a weighted semaphore. The
// semaphore's FIFO waiter queue means a draining writer that has requested
// the full capacity is served before readers that arrive after it, so a
// steady stream of readers cannot starve a writer.
type GoroutineGate struct {
	writeMu  sync.Mutex
	readMu   sync.Mutex
	dataMu   sync.Mutex
	slots    *semaphore.Weighted
	capacity int
}

// NewGoroutineGate returns a gate with the given reader slot capacity.
// Capacity must be at least 1.
func NewGoroutineGate(capacity int) *GoroutineGate {
	if capacity < 1 {
		capacity = 1
	}

	return &GoroutineGate{
		slots:    semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// LockWrite implements Gate.
func (g *GoroutineGate) LockWrite() error {
	g.writeMu.Lock()

	return nil
}

// UnlockWrite implements Gate.
func (g *GoroutineGate) UnlockWrite() error {
	g.writeMu.Unlock()

	return nil
}

// LockRead implements Gate.
func (g *GoroutineGate) LockRead() error {
	g.readMu.Lock()

	return nil
}

// UnlockRead implements Gate.
func (g *GoroutineGate) UnlockRead() error {
	g.readMu.Unlock()

	return nil
}

// Acquire implements Gate. The wait is unbounded: the context passed to the
// semaphore is never canceled.
func (g *GoroutineGate) Acquire(n int) error {
	if n < 1 || n > g.capacity {
		return ErrSlotCount
	}

	// Acquire on context.Background can only return nil.
	_ = g.slots.Acquire(context.Background(), int64(n))

	return nil
}

// Release implements Gate.
func (g *GoroutineGate) Release(n int) error {
	if n < 1 || n > g.capacity {
		return ErrSlotCount
	}

	g.slots.Release(int64(n))

	return nil
}

// LockData implements Gate.
func (g *GoroutineGate) LockData() error {
	g.dataMu.Lock()

	return nil
}

// UnlockData implements Gate.
func (g *GoroutineGate) UnlockData() error {
	g.dataMu.Unlock()

	return nil
}

// Slots implements Gate.
func (g *GoroutineGate) Slots() int {
	return g.capacity
}

// Close implements Gate. In-process primitives hold no external resources.
func (g *GoroutineGate) Close() error {
	return nil
}
