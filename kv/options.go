package kv

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// Coordination modes.
const (
	// CoordinationGoroutines shares in-process primitives between goroutines.
	CoordinationGoroutines = "goroutines"
	// CoordinationProcesses shares flock-backed primitives between processes.
	CoordinationProcesses = "processes"
)

// Blob formats.
const (
	// FormatBolt lays the blob out as a standalone bbolt database file.
	FormatBolt = "bolt"
	// FormatGob lays the blob out as a checksummed gob payload.
	FormatGob = "gob"
)

// Serializations.
const (
	// SerializationJSON stores values as JSON.
	SerializationJSON = "json"
	// SerializationString stores string/[]byte values verbatim.
	SerializationString = "string"
)

// Defaults applied by Options normalization.
const (
	DefaultCoordination  = CoordinationGoroutines
	DefaultFormat        = FormatBolt
	DefaultSerialization = SerializationJSON

	// DefaultReadLimit is the reader slot capacity when none is configured.
	DefaultReadLimit = 10
)

// Options configures a database handle created by Open.
type Options struct {
	// Path is the backing blob file. Required. Sidecar lock files are
	// created next to it in process mode.
	Path string

	// Coordination selects the synchronization backend.
	// Valid values: "goroutines" (default), "processes".
	Coordination string

	// Format selects the blob file layout.
	// Valid values: "bolt" (default), "gob".
	Format string

	// Serialization selects how values are encoded before they reach the
	// mapping. Valid values: "json" (default), "string".
	Serialization string

	// ReadLimit is the reader slot capacity: how many readers may be
	// mid-operation at once. Zero means DefaultReadLimit. In process mode
	// every process sharing the backing file must use the same value.
	ReadLimit int

	// MaxRestoreEntries caps how many entries a blob restore may hydrate.
	// Zero disables the cap.
	MaxRestoreEntries int

	// MaxRestoreSize caps the payload a blob restore may hydrate, as a
	// humanized size string such as "64 MiB". Empty disables the cap.
	MaxRestoreSize string

	// Logger receives structured diagnostics (masked corruption warnings,
	// open/close events). Nil means slog.Default().
	Logger *slog.Logger

	// maxRestoreBytes is the parsed MaxRestoreSize.
	maxRestoreBytes uint64
}

// normalize applies defaults and validates the options in place. The path is
// resolved to an absolute, cleaned form.
func (o *Options) normalize() error {
	path, err := resolvePath(o.Path)
	if err != nil {
		return err
	}

	o.Path = path

	if o.Coordination == "" {
		o.Coordination = DefaultCoordination
	}

	if o.Coordination != CoordinationGoroutines && o.Coordination != CoordinationProcesses {
		return fmt.Errorf(
			"%w: %q; valid values are: %q, %q",
			ErrInvalidCoordination, o.Coordination, CoordinationGoroutines, CoordinationProcesses,
		)
	}

	if o.Format == "" {
		o.Format = DefaultFormat
	}

	if o.Format != FormatBolt && o.Format != FormatGob {
		return fmt.Errorf(
			"%w: %q; valid values are: %q, %q",
			ErrInvalidFormat, o.Format, FormatBolt, FormatGob,
		)
	}

	if o.Serialization == "" {
		o.Serialization = DefaultSerialization
	}

	if o.Serialization != SerializationJSON && o.Serialization != SerializationString {
		return fmt.Errorf(
			"%w: %q; valid values are: %q, %q",
			ErrInvalidSerialization, o.Serialization, SerializationJSON, SerializationString,
		)
	}

	if o.ReadLimit == 0 {
		o.ReadLimit = DefaultReadLimit
	}

	if o.ReadLimit < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidReadLimit, o.ReadLimit)
	}

	if o.MaxRestoreEntries < 0 {
		o.MaxRestoreEntries = 0
	}

	o.maxRestoreBytes = 0

	if trimmed := strings.TrimSpace(o.MaxRestoreSize); trimmed != "" {
		size, err := humanize.ParseBytes(trimmed)
		if err != nil {
			return fmt.Errorf("%w: %q: %w", ErrInvalidRestoreSize, trimmed, err)
		}

		o.maxRestoreBytes = size
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return nil
}

// resolvePath normalizes the backing file path and rejects directories.
// A path that does not exist yet is fine; the first persist creates it.
func resolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}

	absPath, err := filepath.Abs(filepath.Clean(trimmed))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrPathResolveFailed, trimmed, err)
	}

	info, err := os.Stat(absPath)

	switch {
	case err == nil:
		if info.IsDir() {
			return "", fmt.Errorf("%w: %q", ErrPathIsDirectory, absPath)
		}

		return absPath, nil
	case errors.Is(err, os.ErrNotExist):
		return absPath, nil
	default:
		return "", fmt.Errorf("%w: %q: %w", ErrPathResolveFailed, absPath, err)
	}
}
