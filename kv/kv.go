package kv

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/vkarpenko/gatekv/kv/blob"
	"github.com/vkarpenko/gatekv/kv/gate"
	"github.com/vkarpenko/gatekv/kv/store"
)

// DB is a persistent key-value store whose operations run under the gate
// coordination protocol.
//
// A write wins admission, drains every reader slot, and only then mutates
// the mapping and persists the full snapshot; a read holds one slot while it
// rehydrates a private snapshot from the blob and looks the key up. One DB
// handle is safe for use by any number of goroutines; in process mode,
// handles in separate processes pointed at the same path coordinate through
// the same protocol.
type DB struct {
	opts       Options
	gate       gate.Gate
	blob       *blob.Store
	mapping    *store.Mapping
	serializer store.Serializer

	// closeMu admits operations as readers and Close as the writer, so Close
	// waits out in-flight operations before tearing the gate down.
	closeMu sync.RWMutex
	closed  atomic.Bool
}

// Test hooks invoked inside the read and write critical sections.
// Production code leaves them nil.
//
//nolint:gochecknoglobals // these are test hooks.
var (
	readCriticalSection  func()
	writeCriticalSection func()
)

// Open creates a database handle for the backing file in opts.Path,
// rehydrating the in-memory mapping from it. A missing file starts the store
// empty; an unreadable one is discarded with a logged warning and the store
// also starts empty.
func Open(opts Options) (*DB, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	var codec blob.Codec

	switch opts.Format {
	case FormatGob:
		codec = blob.NewGobCodec()
	default:
		codec = blob.NewBoltCodec()
	}

	var serializer store.Serializer

	switch opts.Serialization {
	case SerializationString:
		serializer = store.NewStringSerializer()
	default:
		serializer = store.NewJSONSerializer()
	}

	var g gate.Gate
	if opts.Coordination == CoordinationProcesses {
		g = gate.NewProcessGate(opts.Path, opts.ReadLimit)
	} else {
		g = gate.NewGoroutineGate(opts.ReadLimit)
	}

	db := &DB{
		opts: opts,
		gate: g,
		blob: blob.NewStore(blob.Config{
			Path:              opts.Path,
			Codec:             codec,
			MaxRestoreEntries: opts.MaxRestoreEntries,
			MaxRestoreBytes:   opts.maxRestoreBytes,
		}),
		serializer: serializer,
	}

	snapshot, summary := db.restoreSnapshot()
	db.mapping = store.NewMappingFrom(snapshot)

	db.opts.Logger.Debug("store opened",
		slog.String("path", opts.Path),
		slog.String("coordination", opts.Coordination),
		slog.String("format", codec.Name()),
		slog.Int("read_limit", opts.ReadLimit),
		slog.Int("entries", summary.Entries),
		slog.String("size", humanize.IBytes(summary.Bytes)),
	)

	return db, nil
}

// Set inserts value under key only if the key is absent and reports whether
// the insertion happened. An existing key is left untouched, yet the full
// protocol still runs and the unchanged snapshot is persisted again; the
// extra write keeps the write path uniform.
func (db *DB) Set(key string, value any) (bool, error) {
	encoded, err := db.serializer.Serialize(value)
	if err != nil {
		return false, err
	}

	var inserted bool

	err = db.withWriteAccess(func() error {
		inserted = db.mapping.SetIfAbsent(key, encoded)

		return db.blob.Persist(db.mapping.Snapshot())
	})
	if err != nil {
		return false, err
	}

	return inserted, nil
}

// Get returns the value stored under key and whether it was present. The
// lookup runs against a snapshot freshly rehydrated from the backing file.
func (db *DB) Get(key string) (any, bool, error) {
	var (
		raw []byte
		ok  bool
	)

	err := db.withReadAccess(func(m *store.Mapping) {
		raw, ok = m.Lookup(key)
	})
	if err != nil || !ok {
		return nil, false, err
	}

	value, err := db.serializer.Deserialize(raw)
	if err != nil {
		return nil, true, err
	}

	return value, true, nil
}

// Delete removes key and returns the removed value and whether it existed.
// Like Set, a miss still persists the unchanged snapshot.
func (db *DB) Delete(key string) (any, bool, error) {
	var (
		removed []byte
		ok      bool
	)

	err := db.withWriteAccess(func() error {
		removed, ok = db.mapping.Remove(key)

		return db.blob.Persist(db.mapping.Snapshot())
	})
	if err != nil || !ok {
		return nil, false, err
	}

	value, err := db.serializer.Deserialize(removed)
	if err != nil {
		return nil, true, err
	}

	return value, true, nil
}

// Has reports whether key is present, without deserializing the value.
func (db *DB) Has(key string) (bool, error) {
	var ok bool

	err := db.withReadAccess(func(m *store.Mapping) {
		_, ok = m.Lookup(key)
	})

	return ok, err
}

// Len returns the number of entries in the persisted snapshot.
func (db *DB) Len() (int, error) {
	var n int

	err := db.withReadAccess(func(m *store.Mapping) {
		n = m.Len()
	})

	return n, err
}

// Clear removes every entry, persists the empty snapshot, and returns how
// many entries were removed.
func (db *DB) Clear() (int, error) {
	var removed int

	err := db.withWriteAccess(func() error {
		removed = db.mapping.Clear()

		return db.blob.Persist(db.mapping.Snapshot())
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

// Close waits for in-flight operations to finish, then releases the
// coordination backend. It is idempotent; operations started after Close
// return ErrDatabaseClosed.
func (db *DB) Close() error {
	db.closeMu.Lock()
	defer db.closeMu.Unlock()

	if db.closed.Swap(true) {
		return nil
	}

	db.opts.Logger.Debug("store closed", slog.String("path", db.opts.Path))

	return db.gate.Close()
}

// Path returns the resolved backing file path.
func (db *DB) Path() string {
	return db.opts.Path
}

// withWriteAccess runs mutate inside the full write protocol: admission lock,
// reader exclusion, a drain of every reader slot, then the data lock. Every
// acquisition is released on every path, so an error inside mutate cannot
// leave the gate held.
//
// Before mutate runs, the mapping is rehydrated from the backing file inside
// the data-locked section. Within one process this is a no-op (the mapping
// already matches the file); between processes it is what makes a writer
// start from the latest persisted state instead of its own stale copy.
func (db *DB) withWriteAccess(mutate func() error) error {
	db.closeMu.RLock()
	defer db.closeMu.RUnlock()

	if db.closed.Load() {
		return ErrDatabaseClosed
	}

	if err := db.gate.LockWrite(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteAccessFailed, err)
	}

	defer func() { _ = db.gate.UnlockWrite() }()

	if err := db.gate.LockRead(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteAccessFailed, err)
	}

	defer func() { _ = db.gate.UnlockRead() }()

	// Drain the pool: holding all slots waits out in-flight readers and
	// blocks new ones until the refill.
	if err := db.gate.Acquire(db.gate.Slots()); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteAccessFailed, err)
	}

	defer func() { _ = db.gate.Release(db.gate.Slots()) }()

	if err := db.gate.LockData(); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteAccessFailed, err)
	}

	defer func() { _ = db.gate.UnlockData() }()

	snapshot, _ := db.restoreSnapshot()
	db.mapping.Replace(snapshot)

	if writeCriticalSection != nil {
		writeCriticalSection()
	}

	return mutate()
}

// withReadAccess runs read while holding one reader slot. The callback
// receives a private mapping rehydrated from the backing file, so concurrent
// readers never share mutable state; the DB's own mapping advances only
// under write access.
func (db *DB) withReadAccess(read func(m *store.Mapping)) error {
	db.closeMu.RLock()
	defer db.closeMu.RUnlock()

	if db.closed.Load() {
		return ErrDatabaseClosed
	}

	if err := db.gate.Acquire(1); err != nil {
		return fmt.Errorf("%w: %w", ErrReadAccessFailed, err)
	}

	defer func() { _ = db.gate.Release(1) }()

	snapshot, _ := db.restoreSnapshot()

	if readCriticalSection != nil {
		readCriticalSection()
	}

	read(store.NewMappingFrom(snapshot))

	return nil
}

// restoreSnapshot loads the blob, masking failure to an empty snapshot. A
// missing file is the normal first run and stays quiet; anything else (a
// corrupt or truncated blob, an I/O error, a blown restore budget) is logged
// as a warning before being discarded, so corruption never disappears
// silently even though the operation proceeds on an empty store.
func (db *DB) restoreSnapshot() (map[string][]byte, blob.RestoreSummary) {
	snapshot, summary, err := db.blob.Restore()
	if err != nil {
		db.opts.Logger.Warn("discarding unreadable blob, continuing with an empty snapshot",
			slog.String("path", db.blob.Path()),
			slog.String("format", db.blob.CodecName()),
			slog.Any("error", err),
		)

		return map[string][]byte{}, blob.RestoreSummary{}
	}

	return snapshot, summary
}
