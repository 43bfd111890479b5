package gate

// Gate is the synchronization backend behind the kv access coordinator.
//
// The write path takes LockWrite, then LockRead, then drains every reader
// slot with Acquire(Slots()), then holds LockData around the mutate-and-
// persist step, and unwinds in reverse order. The read path takes a single
// slot for the duration of its reload-and-lookup. Holding all slots is what
// gives a writer exclusive access: no reader can be mid-operation while the
// pool is empty.
//
// All methods block without timeout. Implementations must allow the pairwise
// Unlock/Release calls from the same actor that acquired, and nothing else.
type Gate interface {
	// LockWrite serializes writers against each other.
	LockWrite() error

	// UnlockWrite releases the write-admission lock.
	UnlockWrite() error

	// LockRead keeps a second writer from starting its own drain cycle while
	// one is in progress.
	LockRead() error

	// UnlockRead releases the reader-exclusion lock.
	UnlockRead() error

	// Acquire takes n reader slots, blocking until they are free. A reader
	// takes one; a draining writer takes all of them.
	Acquire(n int) error

	// Release returns n reader slots to the pool.
	Release(n int) error

	// LockData guards the mutate-plus-persist critical section.
	LockData() error

	// UnlockData releases the data lock.
	UnlockData() error

	// Slots reports the reader slot capacity.
	Slots() int

	// Close releases backend resources. The gate must be idle; Close is
	// idempotent.
	Close() error
}
