package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	bolt "go.etcd.io/bbolt"
)

// boltBucket is the single bucket holding the snapshot inside a bolt blob.
var boltBucket = []byte("gatekv")

const (
	// boltMaxBatchEntries caps how many entries go into one bolt transaction.
	boltMaxBatchEntries = 50_000

	// boltMaxBatchBytes caps the key/value payload per bolt transaction (~64MB).
	boltMaxBatchBytes = 64 << 20
)

// BoltCodec lays the snapshot out as a standalone bbolt database file with a
// single bucket. The write side builds the file next to the destination and
// renames it into place once the database is closed, so the blob on disk is
// always a complete bolt file.
type BoltCodec struct{}

// NewBoltCodec returns a BoltCodec.
func NewBoltCodec() *BoltCodec {
	return &BoltCodec{}
}

// Name implements Codec.
func (c *BoltCodec) Name() string {
	return "bolt"
}

// WriteFile implements Codec. The snapshot is written into a temporary bolt
// database in bounded batches, fsynced by bolt's own commit, and renamed over
// the destination.
func (c *BoltCodec) WriteFile(path string, snapshot map[string][]byte) error {
	targetDir := filepath.Dir(path)
	targetBase := filepath.Base(path)

	if targetDir != "" {
		if err := os.MkdirAll(targetDir, 0o750); err != nil {
			return fmt.Errorf("%w: %w", ErrBlobDirectoryFailed, err)
		}
	}

	// A unique temp file alongside the destination keeps the final rename on
	// one filesystem.
	tempHandle, err := os.CreateTemp(targetDir, targetBase+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBlobTempFileFailed, err)
	}

	tempFile := tempHandle.Name()

	if err := tempHandle.Close(); err != nil {
		_ = os.Remove(tempFile)

		return fmt.Errorf("%w: %w", ErrBlobTempFileFailed, err)
	}

	if err := c.writeBoltFile(tempFile, snapshot); err != nil {
		_ = os.Remove(tempFile)

		return err
	}

	if err := os.Rename(tempFile, path); err != nil {
		_ = os.Remove(tempFile)

		return fmt.Errorf("%w: %w", ErrBlobFinalizeFailed, err)
	}

	return nil
}

// writeBoltFile fills a fresh bolt database at tempFile with the snapshot.
func (c *BoltCodec) writeBoltFile(tempFile string, snapshot map[string][]byte) error {
	db, err := bolt.Open(tempFile, 0o600, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBlobWriteFailed, err)
	}

	// Track whether the explicit Close already ran so the defer doesn't
	// double-close on the success path.
	var closed bool

	defer func() {
		if !closed {
			_ = db.Close()
		}
	}()

	// Create the bucket up front: an empty snapshot writes no pairs, and the
	// blob must still read back as a valid empty store, not as corruption.
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)

		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBlobWriteFailed, err)
	}

	writer := newBoltBatchWriter(db)

	for key, value := range snapshot {
		if err := writer.append(key, value); err != nil {
			return err
		}
	}

	if err := writer.flush(); err != nil {
		return err
	}

	// Close explicitly to surface commit errors before the rename.
	if err := db.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrBlobWriteFailed, err)
	}

	closed = true

	return nil
}

// ReadFile implements Codec. The blob is opened read-only; several concurrent
// readers may hydrate from the same file at once.
func (c *BoltCodec) ReadFile(path string, accept func(key string, value []byte) error) error {
	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true})
	if err != nil {
		// bolt refuses files that are not bolt databases (including
		// truncated ones); report that as corruption rather than I/O.
		return fmt.Errorf("%w: %w", ErrBlobCorrupt, err)
	}

	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return fmt.Errorf("%w: bucket %q missing", ErrBlobCorrupt, boltBucket)
		}

		return bucket.ForEach(func(k, v []byte) error {
			// Clone both halves: bolt's memory is only valid inside the
			// transaction.
			return accept(string(k), slices.Clone(v))
		})
	})
}

// boltBatchWriter buffers entries and flushes them in bounded bolt
// transactions so a huge snapshot cannot grow one transaction without limit.
type boltBatchWriter struct {
	db           *bolt.DB
	pending      []boltPair
	pendingBytes int
}

// boltPair is one staged key/value write.
type boltPair struct {
	key   []byte
	value []byte
}

func newBoltBatchWriter(db *bolt.DB) *boltBatchWriter {
	return &boltBatchWriter{
		db:      db,
		pending: make([]boltPair, 0, 1024),
	}
}

// append stages one pair and flushes automatically when either batch limit is
// reached.
func (b *boltBatchWriter) append(key string, value []byte) error {
	b.pending = append(b.pending, boltPair{key: []byte(key), value: value})
	b.pendingBytes += len(key) + len(value)

	if len(b.pending) >= boltMaxBatchEntries || b.pendingBytes >= boltMaxBatchBytes {
		return b.flush()
	}

	return nil
}

// flush writes every staged pair in a single transaction and resets the
// buffer. Reusing the slice is safe: the writer is single-threaded.
func (b *boltBatchWriter) flush() error {
	if len(b.pending) == 0 {
		return nil
	}

	batch := b.pending
	b.pending = b.pending[:0]
	b.pendingBytes = 0

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBlobWriteFailed, err)
		}

		for _, pair := range batch {
			if err := bucket.Put(pair.key, pair.value); err != nil {
				return fmt.Errorf("%w: %w", ErrBlobWriteFailed, err)
			}
		}

		return nil
	})
}
