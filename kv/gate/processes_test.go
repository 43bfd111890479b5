package gate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// twoProcessGates returns two independent gates sharing one base path. Each
// acquisition opens its own descriptor, so two gates in one test process
// contend exactly like gates in two separate processes would.
func twoProcessGates(t *testing.T, capacity int) (*ProcessGate, *ProcessGate) {
	t.Helper()

	base := filepath.Join(t.TempDir(), "store.db")
	g1 := NewProcessGate(base, capacity)
	g2 := NewProcessGate(base, capacity)

	t.Cleanup(func() {
		_ = g1.Close()
		_ = g2.Close()
	})

	return g1, g2
}

// TestProcessGate_WriteAdmissionAcrossGates verifies the flock-backed write
// lock excludes a second holder on a different gate instance.
func TestProcessGate_WriteAdmissionAcrossGates(t *testing.T) {
	t.Parallel()

	g1, g2 := twoProcessGates(t, 2)

	require.NoError(t, g1.LockWrite())

	done := make(chan struct{})

	go func() {
		_ = g2.LockWrite()
		close(done)
	}()

	requireBlocked(t, done, "the second gate must wait for write admission")

	require.NoError(t, g1.UnlockWrite())
	requireReleased(t, done, "the second gate must win admission after the first releases")

	require.NoError(t, g2.UnlockWrite())
}

// TestProcessGate_SlotsSharedAcrossGates verifies the slot pool is a shared
// resource: slots taken through one gate count against readers on the other.
func TestProcessGate_SlotsSharedAcrossGates(t *testing.T) {
	t.Parallel()

	g1, g2 := twoProcessGates(t, 2)

	require.NoError(t, g1.Acquire(1))
	require.NoError(t, g2.Acquire(1))

	done := make(chan struct{})

	go func() {
		_ = g1.Acquire(1)
		close(done)
	}()

	requireBlocked(t, done, "a third reader must block while both shared slots are held")

	require.NoError(t, g2.Release(1))
	requireReleased(t, done, "a slot freed through the other gate must admit the blocked reader")

	require.NoError(t, g1.Release(1))
	require.NoError(t, g1.Release(1))
}

// TestProcessGate_DrainExcludesReadersAcrossGates verifies a full drain
// through one gate blocks readers arriving through the other until the
// refill.
func TestProcessGate_DrainExcludesReadersAcrossGates(t *testing.T) {
	t.Parallel()

	g1, g2 := twoProcessGates(t, 2)

	require.NoError(t, g1.Acquire(g1.Slots()))

	done := make(chan struct{})

	go func() {
		_ = g2.Acquire(1)
		close(done)
	}()

	requireBlocked(t, done, "no reader may start while the pool is drained")

	require.NoError(t, g1.Release(g1.Slots()))
	requireReleased(t, done, "refilling the pool must admit the waiting reader")

	require.NoError(t, g2.Release(1))
}

// TestProcessGate_DrainWaitsForReader verifies the drain waits out a reader
// that entered through the other gate.
func TestProcessGate_DrainWaitsForReader(t *testing.T) {
	t.Parallel()

	g1, g2 := twoProcessGates(t, 2)

	require.NoError(t, g2.Acquire(1))

	drained := make(chan struct{})

	go func() {
		_ = g1.Acquire(g1.Slots())
		close(drained)
	}()

	requireBlocked(t, drained, "the drain must wait for the in-flight reader")

	require.NoError(t, g2.Release(1))
	requireReleased(t, drained, "the drain must complete once the reader finishes")

	require.NoError(t, g1.Release(g1.Slots()))
}

// TestProcessGate_UnlockWithoutLock verifies unmatched releases are reported
// instead of corrupting the bookkeeping.
func TestProcessGate_UnlockWithoutLock(t *testing.T) {
	t.Parallel()

	g, _ := twoProcessGates(t, 2)

	require.ErrorIs(t, g.UnlockWrite(), ErrLockNotHeld)
	require.ErrorIs(t, g.UnlockRead(), ErrLockNotHeld)
	require.ErrorIs(t, g.UnlockData(), ErrLockNotHeld)
	require.ErrorIs(t, g.Release(1), ErrLockNotHeld)
}

// TestProcessGate_Close verifies Close is idempotent, drops held locks, and
// fails further use.
func TestProcessGate_Close(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "store.db")
	g1 := NewProcessGate(base, 2)
	g2 := NewProcessGate(base, 2)

	require.NoError(t, g1.LockWrite())
	require.NoError(t, g1.Acquire(1))

	require.NoError(t, g1.Close())
	require.NoError(t, g1.Close(), "Close must be idempotent")

	require.ErrorIs(t, g1.LockWrite(), ErrGateClosed)
	require.ErrorIs(t, g1.Acquire(1), ErrGateClosed)

	// The locks g1 held must have been dropped with it.
	require.NoError(t, g2.LockWrite())
	require.NoError(t, g2.Acquire(g2.Slots()))
	require.NoError(t, g2.Release(g2.Slots()))
	require.NoError(t, g2.UnlockWrite())
	require.NoError(t, g2.Close())
}
