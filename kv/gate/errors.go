package gate

import "errors"

var (
	// ErrSlotCount is returned when Acquire or Release is asked for a slot
	// count outside [1, Slots()].
	ErrSlotCount = errors.New("slot count out of range")
	// ErrLockFileOpen indicates a sidecar lock file could not be opened or created.
	ErrLockFileOpen = errors.New("lock file open failed")
	// ErrLockAcquireFailed indicates flock failed for a reason other than contention.
	ErrLockAcquireFailed = errors.New("lock acquire failed")
	// ErrLockNotHeld is returned when an unlock has no matching acquisition.
	ErrLockNotHeld = errors.New("lock is not held")
	// ErrGateClosed is returned when a closed gate is used.
	ErrGateClosed = errors.New("gate is closed")
)
