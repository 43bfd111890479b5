package blob

import "errors"

var (
	// ErrBlobCorrupt is returned when the backing file exists but cannot be
	// decoded: truncated contents, a failed checksum, or a foreign format.
	ErrBlobCorrupt = errors.New("blob file is corrupt or unreadable")
	// ErrBlobReadFailed indicates an I/O failure while reading the backing file.
	ErrBlobReadFailed = errors.New("blob read failed")
	// ErrBlobWriteFailed indicates an I/O failure while writing the backing file.
	ErrBlobWriteFailed = errors.New("blob write failed")
	// ErrBlobDirectoryFailed indicates the backing file's directory could not be created.
	ErrBlobDirectoryFailed = errors.New("blob directory operation failed")
	// ErrBlobTempFileFailed indicates a temporary file operation failed.
	ErrBlobTempFileFailed = errors.New("blob temporary file operation failed")
	// ErrBlobFinalizeFailed indicates the atomic replacement of the backing file failed.
	ErrBlobFinalizeFailed = errors.New("blob finalize failed")
	// ErrRestoreEntriesExceeded is returned when restore hits the MaxEntries cap.
	ErrRestoreEntriesExceeded = errors.New("restore exceeded entry cap")
	// ErrRestoreBytesExceeded is returned when restore hits the MaxBytes cap.
	ErrRestoreBytesExceeded = errors.New("restore exceeded byte cap")
)
