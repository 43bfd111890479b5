package store

import "slices"

// Mapping is the in-memory mapping core: a plain key-to-bytes map with
// insert-if-absent semantics and no concurrency control of its own.
//
// Callers must already hold the appropriate access through the coordinator:
// write access for SetIfAbsent, Remove, Clear, and Replace; at least read
// access for Lookup, Len, and Snapshot.
type Mapping struct {
	// container is the complete snapshot of the store between persistence points.
	container map[string][]byte
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{container: map[string][]byte{}}
}

// NewMappingFrom wraps a freshly restored snapshot without copying it.
// The mapping takes ownership of the given map; a nil snapshot yields an
// empty mapping.
func NewMappingFrom(snapshot map[string][]byte) *Mapping {
	if snapshot == nil {
		snapshot = map[string][]byte{}
	}

	return &Mapping{container: snapshot}
}

// SetIfAbsent inserts value under key only when the key is not already present
// and reports whether the insertion happened. It never overwrites.
func (m *Mapping) SetIfAbsent(key string, value []byte) bool {
	if _, exists := m.container[key]; exists {
		return false
	}

	m.container[key] = value

	return true
}

// Lookup returns the value stored under key and whether it was present.
func (m *Mapping) Lookup(key string) ([]byte, bool) {
	value, ok := m.container[key]

	return value, ok
}

// Remove deletes key and returns the removed value, if any.
func (m *Mapping) Remove(key string) ([]byte, bool) {
	value, ok := m.container[key]
	if !ok {
		return nil, false
	}

	delete(m.container, key)

	return value, true
}

// Len returns the number of entries currently held.
func (m *Mapping) Len() int {
	return len(m.container)
}

// Clear drops every entry and returns how many were removed.
func (m *Mapping) Clear() int {
	removed := len(m.container)
	m.container = map[string][]byte{}

	return removed
}

// Replace swaps the entire contents for the given snapshot. The previous
// contents are discarded, not merged. The mapping takes ownership of the map.
func (m *Mapping) Replace(snapshot map[string][]byte) {
	if snapshot == nil {
		snapshot = map[string][]byte{}
	}

	m.container = snapshot
}

// Snapshot returns a deep copy of the current contents, suitable for handing
// to the blob store while the mapping itself keeps evolving.
func (m *Mapping) Snapshot() map[string][]byte {
	snapshot := make(map[string][]byte, len(m.container))

	for key, value := range m.container {
		snapshot[key] = slices.Clone(value)
	}

	return snapshot
}
