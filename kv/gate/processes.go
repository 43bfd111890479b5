package gate

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// lockFilePerms is the mode for sidecar lock files.
	lockFilePerms = 0o640

	// slotProbeInterval is how long a reader sleeps between rounds of
	// non-blocking probes when every slot is taken.
	slotProbeInterval = 2 * time.Millisecond
)

// ProcessGate coordinates processes sharing one backing file. Each primitive
// is an flock(2) on a sidecar file derived from the backing path: one file
// each for write admission, reader exclusion, and the data lock, plus one
// file per reader slot.
//
// Every acquisition opens its own descriptor, so the flocks exclude
// goroutines within one process exactly as they exclude separate processes.
// Locks die with the process that holds them; the sidecar files themselves
// are left in place for the next process.
//
// A draining writer flocks the slot files in index order, blocking on each
// until its current reader finishes. Readers grab any free slot with
// non-blocking probes and retry until one opens up. The kernel does not
// queue flock waiters fairly, so a relentless stream of readers can in
// principle delay a drain; the reader-exclusion lock keeps that window
// bounded to slots the writer has not reached yet.
type ProcessGate struct {
	base     string
	capacity int

	// mu guards the held-lock bookkeeping below. The flocks themselves do
	// the actual mutual exclusion.
	mu     sync.Mutex
	write  *lockFile
	read   *lockFile
	data   *lockFile
	held   []*lockFile
	closed bool
}

// lockFile is one held flock and the descriptor that carries it.
type lockFile struct {
	path string
	file *os.File
}

// NewProcessGate returns a gate whose sidecar lock files live next to the
// backing file at base. Capacity must be at least 1 and must match the
// capacity used by every other process sharing the same backing file.
func NewProcessGate(base string, capacity int) *ProcessGate {
	if capacity < 1 {
		capacity = 1
	}

	return &ProcessGate{
		base:     base,
		capacity: capacity,
		held:     make([]*lockFile, 0, capacity),
	}
}

// LockWrite implements Gate.
func (g *ProcessGate) LockWrite() error {
	if err := g.ensureOpen(); err != nil {
		return err
	}

	lock, err := acquireBlocking(g.base + ".write.lock")
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.write = lock
	g.mu.Unlock()

	return nil
}

// UnlockWrite implements Gate.
func (g *ProcessGate) UnlockWrite() error {
	g.mu.Lock()
	lock := g.write
	g.write = nil
	g.mu.Unlock()

	if lock == nil {
		return fmt.Errorf("%w: write admission", ErrLockNotHeld)
	}

	return lock.release()
}

// LockRead implements Gate.
func (g *ProcessGate) LockRead() error {
	if err := g.ensureOpen(); err != nil {
		return err
	}

	lock, err := acquireBlocking(g.base + ".read.lock")
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.read = lock
	g.mu.Unlock()

	return nil
}

// UnlockRead implements Gate.
func (g *ProcessGate) UnlockRead() error {
	g.mu.Lock()
	lock := g.read
	g.read = nil
	g.mu.Unlock()

	if lock == nil {
		return fmt.Errorf("%w: reader exclusion", ErrLockNotHeld)
	}

	return lock.release()
}

// Acquire implements Gate.
//
// A full drain (n == Slots()) flocks every slot file in index order with a
// blocking wait on each: once slot i is held it stays held, so the drain
// makes monotonic progress no matter how readers churn on the remaining
// slots. A reader probes for any free slot instead, because which slot it
// gets does not matter.
func (g *ProcessGate) Acquire(n int) error {
	if n < 1 || n > g.capacity {
		return ErrSlotCount
	}

	if err := g.ensureOpen(); err != nil {
		return err
	}

	acquired := make([]*lockFile, 0, n)

	fail := func(err error) error {
		for _, lock := range acquired {
			_ = lock.release()
		}

		return err
	}

	if n == g.capacity {
		for i := 0; i < g.capacity; i++ {
			lock, err := acquireBlocking(g.slotPath(i))
			if err != nil {
				return fail(err)
			}

			acquired = append(acquired, lock)
		}
	} else {
		for i := 0; i < n; i++ {
			lock, err := g.acquireAnySlot()
			if err != nil {
				return fail(err)
			}

			acquired = append(acquired, lock)
		}
	}

	g.mu.Lock()
	g.held = append(g.held, acquired...)
	g.mu.Unlock()

	return nil
}

// Release implements Gate. Slots are fungible: the most recently acquired n
// holds are released, whichever slot files they happen to pin.
func (g *ProcessGate) Release(n int) error {
	if n < 1 || n > g.capacity {
		return ErrSlotCount
	}

	g.mu.Lock()

	if len(g.held) < n {
		g.mu.Unlock()

		return fmt.Errorf("%w: %d held, %d released", ErrLockNotHeld, len(g.held), n)
	}

	cut := len(g.held) - n
	released := g.held[cut:]
	g.held = g.held[:cut]

	g.mu.Unlock()

	var firstErr error

	for _, lock := range released {
		if err := lock.release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// LockData implements Gate.
func (g *ProcessGate) LockData() error {
	if err := g.ensureOpen(); err != nil {
		return err
	}

	lock, err := acquireBlocking(g.base + ".data.lock")
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.data = lock
	g.mu.Unlock()

	return nil
}

// UnlockData implements Gate.
func (g *ProcessGate) UnlockData() error {
	g.mu.Lock()
	lock := g.data
	g.data = nil
	g.mu.Unlock()

	if lock == nil {
		return fmt.Errorf("%w: data", ErrLockNotHeld)
	}

	return lock.release()
}

// Slots implements Gate.
func (g *ProcessGate) Slots() int {
	return g.capacity
}

// Close implements Gate. Sidecar files stay on disk for other processes; any
// flock this gate still holds is dropped.
func (g *ProcessGate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}

	g.closed = true

	for _, lock := range []*lockFile{g.write, g.read, g.data} {
		if lock != nil {
			_ = lock.release()
		}
	}

	for _, lock := range g.held {
		_ = lock.release()
	}

	g.write, g.read, g.data, g.held = nil, nil, nil, nil

	return nil
}

// ensureOpen fails fast once the gate has been closed.
func (g *ProcessGate) ensureOpen() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrGateClosed
	}

	return nil
}

// slotPath names the sidecar file backing reader slot i.
func (g *ProcessGate) slotPath(i int) string {
	return fmt.Sprintf("%s.slot.%d.lock", g.base, i)
}

// acquireAnySlot claims whichever slot file is free, probing each in turn and
// sleeping briefly between full rounds. The wait is unbounded.
func (g *ProcessGate) acquireAnySlot() (*lockFile, error) {
	for {
		for i := 0; i < g.capacity; i++ {
			lock, ok, err := tryAcquire(g.slotPath(i))
			if err != nil {
				return nil, err
			}

			if ok {
				return lock, nil
			}
		}

		time.Sleep(slotProbeInterval)
	}
}

// acquireBlocking opens path and waits for an exclusive flock on it.
func acquireBlocking(path string) (*lockFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePerms)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLockFileOpen, path, err)
	}

	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX)
		if err == nil {
			return &lockFile{path: path, file: file}, nil
		}

		// A signal can interrupt the wait; resume it.
		if errors.Is(err, unix.EINTR) {
			continue
		}

		_ = file.Close()

		return nil, fmt.Errorf("%w: %s: %w", ErrLockAcquireFailed, path, err)
	}
}

// tryAcquire attempts a non-blocking exclusive flock on path. The middle
// return reports whether the lock was obtained.
func tryAcquire(path string) (*lockFile, bool, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePerms)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrLockFileOpen, path, err)
	}

	err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return &lockFile{path: path, file: file}, true, nil
	}

	_ = file.Close()

	if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
		return nil, false, nil
	}

	return nil, false, fmt.Errorf("%w: %s: %w", ErrLockAcquireFailed, path, err)
}

// release drops the flock and closes its descriptor.
func (l *lockFile) release() error {
	if l.file == nil {
		return nil
	}

	flockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if flockErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrLockAcquireFailed, l.path, flockErr)
	}

	return closeErr
}
