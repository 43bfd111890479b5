package blob

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"
)

const (
	// gobMagic marks a gob blob and doubles as a format version tag.
	gobMagic = "GKV1"

	// gobHeaderSize is magic plus the 8-byte xxhash64 payload checksum.
	gobHeaderSize = len(gobMagic) + 8
)

// GobCodec lays the snapshot out as a small header followed by a gob-encoded
// map. The header carries an xxhash64 checksum of the payload so truncation
// and bit rot surface as corruption instead of a silently wrong decode. The
// file is replaced atomically on every write.
type GobCodec struct{}

// NewGobCodec returns a GobCodec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Name implements Codec.
func (c *GobCodec) Name() string {
	return "gob"
}

// WriteFile implements Codec.
func (c *GobCodec) WriteFile(path string, snapshot map[string][]byte) error {
	targetDir := filepath.Dir(path)
	if targetDir != "" {
		if err := os.MkdirAll(targetDir, 0o750); err != nil {
			return fmt.Errorf("%w: %w", ErrBlobDirectoryFailed, err)
		}
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrBlobWriteFailed, err)
	}

	buf := make([]byte, 0, gobHeaderSize+payload.Len())
	buf = append(buf, gobMagic...)
	buf = binary.BigEndian.AppendUint64(buf, xxhash.Sum64(payload.Bytes()))
	buf = append(buf, payload.Bytes()...)

	// atomic.WriteFile stages a temp file, fsyncs it, and renames it over
	// the destination.
	if err := atomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("%w: %w", ErrBlobFinalizeFailed, err)
	}

	return nil
}

// ReadFile implements Codec.
func (c *GobCodec) ReadFile(path string, accept func(key string, value []byte) error) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBlobReadFailed, err)
	}

	if len(raw) < gobHeaderSize {
		return fmt.Errorf("%w: %d bytes is shorter than the header", ErrBlobCorrupt, len(raw))
	}

	if string(raw[:len(gobMagic)]) != gobMagic {
		return fmt.Errorf("%w: bad magic", ErrBlobCorrupt)
	}

	payload := raw[gobHeaderSize:]

	want := binary.BigEndian.Uint64(raw[len(gobMagic):gobHeaderSize])
	if got := xxhash.Sum64(payload); got != want {
		return fmt.Errorf("%w: checksum mismatch (want %016x, got %016x)", ErrBlobCorrupt, want, got)
	}

	var snapshot map[string][]byte
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrBlobCorrupt, err)
	}

	for key, value := range snapshot {
		if err := accept(key, value); err != nil {
			return err
		}
	}

	return nil
}
