package kv

import "errors"

var (
	// ErrPathRequired is returned when Options.Path is empty.
	ErrPathRequired = errors.New("backing file path is required")
	// ErrPathIsDirectory is returned when Options.Path names a directory.
	ErrPathIsDirectory = errors.New("backing file path is a directory")
	// ErrPathResolveFailed indicates the backing file path could not be resolved.
	ErrPathResolveFailed = errors.New("backing file path resolve failed")
	// ErrInvalidCoordination is returned for an unknown coordination mode.
	ErrInvalidCoordination = errors.New("invalid coordination mode")
	// ErrInvalidFormat is returned for an unknown blob format.
	ErrInvalidFormat = errors.New("invalid blob format")
	// ErrInvalidSerialization is returned for an unknown serialization.
	ErrInvalidSerialization = errors.New("invalid serialization")
	// ErrInvalidReadLimit is returned when the reader slot capacity is not positive.
	ErrInvalidReadLimit = errors.New("read limit must be at least 1")
	// ErrInvalidRestoreSize is returned when MaxRestoreSize cannot be parsed.
	ErrInvalidRestoreSize = errors.New("invalid restore size")
	// ErrDatabaseClosed is returned by operations on a closed database.
	ErrDatabaseClosed = errors.New("database is closed")
	// ErrWriteAccessFailed indicates the write-side coordination protocol failed.
	ErrWriteAccessFailed = errors.New("write access failed")
	// ErrReadAccessFailed indicates the read-side coordination protocol failed.
	ErrReadAccessFailed = errors.New("read access failed")
)
