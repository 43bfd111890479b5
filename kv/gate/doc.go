// Package gate provides the synchronization backends behind the kv access
// coordinator.
//
// A Gate bundles four primitives: a write-admission lock that totally orders
// writers, a reader-exclusion lock that keeps two writers from interleaving
// their drain cycles, a bounded pool of reader slots, and a data lock around
// the mutate-plus-persist step. GoroutineGate backs them with in-process
// primitives; ProcessGate backs them with flock(2) on sidecar lock files so
// separate processes sharing one backing file obey the same protocol.
//
// Every acquisition blocks without timeout and without cancellation. A holder
// that never releases starves everyone behind it; the coordinator keeps that
// window small by releasing on every path, but a process killed inside a
// critical section leaves its flock-backed locks held until the kernel drops
// them with the process.
package gate
