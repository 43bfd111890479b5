package blob

import (
	"errors"
	"fmt"
	"os"
)

type (
	// Codec encodes a snapshot into the backing file format and back.
	Codec interface {
		// Name identifies the codec in options and log attributes.
		Name() string

		// WriteFile replaces the file at path with the encoded snapshot.
		// Implementations must replace atomically (temp file + rename) so a
		// concurrent process never observes a half-written blob.
		WriteFile(path string, snapshot map[string][]byte) error

		// ReadFile decodes the file at path, feeding every entry through
		// accept in unspecified order. The file is known to exist when
		// ReadFile is called. Damaged or foreign contents are reported as
		// ErrBlobCorrupt (possibly wrapped); errors returned by accept are
		// passed through unchanged.
		ReadFile(path string, accept func(key string, value []byte) error) error
	}

	// Store reads and writes the complete mapping snapshot as one durable
	// blob at a fixed path.
	Store struct {
		// path is the backing file.
		path string

		// codec encodes/decodes the on-disk layout.
		codec Codec

		// maxEntries caps how many entries Restore may hydrate. Zero disables the cap.
		maxEntries int

		// maxBytes caps the aggregate key/value payload Restore may hydrate.
		// Zero disables the cap.
		maxBytes uint64
	}

	// Config configures a Store.
	Config struct {
		// Path is the backing file. Required.
		Path string

		// Codec selects the on-disk layout. Required.
		Codec Codec

		// MaxRestoreEntries limits how many entries may be hydrated on
		// Restore. Zero disables the cap.
		MaxRestoreEntries int

		// MaxRestoreBytes limits the aggregate key/value payload hydrated on
		// Restore. Zero disables the cap.
		MaxRestoreBytes uint64
	}

	// RestoreSummary reports what a Restore hydrated.
	RestoreSummary struct {
		// Entries is the number of key/value pairs hydrated.
		Entries int

		// Bytes is the aggregate key/value payload size.
		Bytes uint64
	}

	// restoreBudget tracks the entry and byte caps while a snapshot is
	// hydrated, preventing OOM on oversized or damaged blobs.
	restoreBudget struct {
		maxEntries int
		maxBytes   uint64
		entries    int
		bytesUsed  uint64
	}
)

// NewStore constructs a Store over the given path and codec.
func NewStore(cfg Config) *Store {
	return &Store{
		path:       cfg.Path,
		codec:      cfg.Codec,
		maxEntries: cfg.MaxRestoreEntries,
		maxBytes:   cfg.MaxRestoreBytes,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// CodecName returns the name of the configured codec.
func (s *Store) CodecName() string {
	return s.codec.Name()
}

// Persist fully replaces the backing file with the encoded snapshot. Prior
// contents are overwritten, never merged.
func (s *Store) Persist(snapshot map[string][]byte) error {
	if err := s.codec.WriteFile(s.path, snapshot); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBlobWriteFailed, s.path, err)
	}

	return nil
}

// Restore hydrates the complete snapshot from the backing file.
//
// A missing backing file is a normal first-run condition and yields an empty
// snapshot with a nil error. Everything else that prevents a full decode --
// corruption, truncation, I/O trouble, a blown restore budget -- is reported
// as an error; the caller decides whether to mask it.
func (s *Store) Restore() (map[string][]byte, RestoreSummary, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]byte{}, RestoreSummary{}, nil
		}

		return nil, RestoreSummary{}, fmt.Errorf("%w: %s: %w", ErrBlobReadFailed, s.path, err)
	}

	budget := &restoreBudget{
		maxEntries: s.maxEntries,
		maxBytes:   s.maxBytes,
	}
	snapshot := map[string][]byte{}

	err := s.codec.ReadFile(s.path, func(key string, value []byte) error {
		if err := budget.track(len(key), len(value)); err != nil {
			return err
		}

		snapshot[key] = value

		return nil
	})
	if err != nil {
		return nil, RestoreSummary{}, fmt.Errorf("restore %s: %w", s.path, err)
	}

	return snapshot, RestoreSummary{Entries: budget.entries, Bytes: budget.bytesUsed}, nil
}

// track accounts for one key/value pair against the caps. The checks run
// before the counters move so a blob can never overshoot a cap, not even by
// one entry.
func (b *restoreBudget) track(keyLen, valueLen int) error {
	if b.maxEntries > 0 && b.entries >= b.maxEntries {
		return fmt.Errorf("%w: cap=%d", ErrRestoreEntriesExceeded, b.maxEntries)
	}

	entryBytes := uint64(keyLen + valueLen)

	if b.maxBytes > 0 && b.bytesUsed+entryBytes > b.maxBytes {
		return fmt.Errorf("%w: cap=%d", ErrRestoreBytesExceeded, b.maxBytes)
	}

	b.entries++
	b.bytesUsed += entryBytes

	return nil
}
