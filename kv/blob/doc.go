// Package blob persists the complete store snapshot as a single durable file
// and restores it wholesale.
//
// The file layout is pluggable through the Codec interface: BoltCodec writes
// the snapshot as a standalone bbolt database, GobCodec writes a checksummed
// gob payload. Both replace the backing file atomically (temp file + rename),
// so readers never observe a partially written blob.
//
// The package provides no concurrency guarantees of its own; the access
// coordinator in package kv sequences every Persist against every Restore.
package blob
