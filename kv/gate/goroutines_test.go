package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	// blockWindow is how long a call must stay blocked before the test
	// accepts that it blocks.
	blockWindow = 50 * time.Millisecond

	// releaseWindow is how long the test waits for a blocked call to be
	// released before declaring a deadlock.
	releaseWindow = 2 * time.Second
)

// requireBlocked asserts that the goroutine behind done does not finish
// within blockWindow.
func requireBlocked(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()

	select {
	case <-done:
		t.Fatal(msg)
	case <-time.After(blockWindow):
	}
}

// requireReleased asserts that the goroutine behind done finishes within
// releaseWindow.
func requireReleased(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()

	select {
	case <-done:
	case <-time.After(releaseWindow):
		t.Fatal(msg)
	}
}

// TestGoroutineGate_BoundedReaders verifies the slot pool admits exactly its
// capacity: with every slot held the next reader blocks until one is freed.
func TestGoroutineGate_BoundedReaders(t *testing.T) {
	t.Parallel()

	g := NewGoroutineGate(2)

	require.NoError(t, g.Acquire(1))
	require.NoError(t, g.Acquire(1))

	done := make(chan struct{})

	go func() {
		_ = g.Acquire(1)
		close(done)
	}()

	requireBlocked(t, done, "a third reader must block while the pool is empty")

	require.NoError(t, g.Release(1))
	requireReleased(t, done, "releasing a slot must admit the blocked reader")

	require.NoError(t, g.Release(1))
	require.NoError(t, g.Release(1))
}

// TestGoroutineGate_DrainWaitsForReaders verifies that a full drain waits out
// an in-flight reader and that no reader starts while the pool is drained.
func TestGoroutineGate_DrainWaitsForReaders(t *testing.T) {
	t.Parallel()

	g := NewGoroutineGate(3)

	require.NoError(t, g.Acquire(1))

	drained := make(chan struct{})

	go func() {
		_ = g.Acquire(g.Slots())
		close(drained)
	}()

	requireBlocked(t, drained, "the drain must wait for the in-flight reader")

	require.NoError(t, g.Release(1))
	requireReleased(t, drained, "the drain must complete once the reader finishes")

	readerDone := make(chan struct{})

	go func() {
		_ = g.Acquire(1)
		close(readerDone)
	}()

	requireBlocked(t, readerDone, "no reader may start while the pool is drained")

	require.NoError(t, g.Release(g.Slots()))
	requireReleased(t, readerDone, "refilling the pool must admit the waiting reader")

	require.NoError(t, g.Release(1))
}

// TestGoroutineGate_WriteAdmission verifies the write lock admits one holder
// at a time.
func TestGoroutineGate_WriteAdmission(t *testing.T) {
	t.Parallel()

	g := NewGoroutineGate(1)

	require.NoError(t, g.LockWrite())

	done := make(chan struct{})

	go func() {
		_ = g.LockWrite()
		close(done)
	}()

	requireBlocked(t, done, "a second writer must wait for admission")

	require.NoError(t, g.UnlockWrite())
	requireReleased(t, done, "the second writer must win admission after the first releases")

	require.NoError(t, g.UnlockWrite())
}

// TestGoroutineGate_SlotCountValidation verifies out-of-range slot counts are
// rejected rather than deadlocking or panicking.
func TestGoroutineGate_SlotCountValidation(t *testing.T) {
	t.Parallel()

	g := NewGoroutineGate(2)

	require.ErrorIs(t, g.Acquire(0), ErrSlotCount)
	require.ErrorIs(t, g.Acquire(3), ErrSlotCount)
	require.ErrorIs(t, g.Release(0), ErrSlotCount)
	require.ErrorIs(t, g.Release(3), ErrSlotCount)
}

// TestGoroutineGate_CapacityFloor verifies the capacity never drops below one
// slot.
func TestGoroutineGate_CapacityFloor(t *testing.T) {
	t.Parallel()

	g := NewGoroutineGate(0)
	require.Equal(t, 1, g.Slots())

	require.NoError(t, g.Acquire(1))
	require.NoError(t, g.Release(1))
	require.NoError(t, g.Close())
}
