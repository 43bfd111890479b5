// Package store holds the unsynchronized mapping core and the value
// serializers used by the kv package.
//
// Nothing in this package locks. The access coordinator in package kv gates
// every call; Mapping documents that contract explicitly. Absent keys and
// duplicate keys are ordinary outcomes here, never errors.
package store
