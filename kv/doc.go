// Package kv implements a small persistent key-value store whose every
// operation is gated by a reader/writer coordination protocol.
//
// High-level behavior:
//   - The complete mapping lives in memory and is persisted as one blob file
//     after every successful write; each read rehydrates its own snapshot
//     from that file before looking up.
//   - Writers are totally ordered: a writer first wins admission, then drains
//     the bounded pool of reader slots, so its mutate-and-persist step never
//     overlaps any reader's reload-and-lookup.
//   - Up to ReadLimit readers run concurrently; each may observe either the
//     pre-write or the fully persisted post-write state, never a partial one.
//   - Coordination is pluggable: goroutine mode shares primitives within one
//     process, process mode shares flock-backed primitives between processes
//     that open the same backing file.
//
// Set never overwrites (insert-if-absent), Get and Delete report absence
// through a boolean rather than an error.
package kv
