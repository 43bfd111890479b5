package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMapping_SetIfAbsent verifies that the first insert wins and a second
// insert under the same key neither happens nor overwrites.
func TestMapping_SetIfAbsent(t *testing.T) {
	t.Parallel()

	m := NewMapping()

	require.True(t, m.SetIfAbsent("k", []byte("v1")), "first insert must happen")
	require.False(t, m.SetIfAbsent("k", []byte("v2")), "second insert must be refused")

	value, ok := m.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), value, "the original value must survive the refused insert")
}

// TestMapping_Remove verifies that removal returns the prior value and that a
// missing key is an ordinary miss.
func TestMapping_Remove(t *testing.T) {
	t.Parallel()

	m := NewMapping()

	_, ok := m.Remove("missing")
	require.False(t, ok, "removing a missing key is a miss, not an error")

	require.True(t, m.SetIfAbsent("k", []byte("v")))

	value, ok := m.Remove("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	_, ok = m.Lookup("k")
	assert.False(t, ok, "removed key must be gone")
}

// TestMapping_LenAndClear verifies the entry count and that Clear reports how
// many entries it dropped.
func TestMapping_LenAndClear(t *testing.T) {
	t.Parallel()

	m := NewMapping()
	require.Zero(t, m.Len())

	require.True(t, m.SetIfAbsent("a", []byte("1")))
	require.True(t, m.SetIfAbsent("b", []byte("2")))
	require.Equal(t, 2, m.Len())

	assert.Equal(t, 2, m.Clear())
	assert.Zero(t, m.Len())
	assert.Zero(t, m.Clear(), "clearing an empty mapping removes nothing")
}

// TestMapping_ReplaceAndSnapshot verifies that Replace swaps contents
// wholesale (no merging) and that Snapshot is a deep copy.
func TestMapping_ReplaceAndSnapshot(t *testing.T) {
	t.Parallel()

	m := NewMappingFrom(map[string][]byte{"a": []byte("1")})

	m.Replace(map[string][]byte{"b": []byte("2")})

	_, ok := m.Lookup("a")
	require.False(t, ok, "Replace must discard prior contents, not merge them")

	snapshot := m.Snapshot()
	snapshot["b"][0] = 'X'

	value, ok := m.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), value, "snapshot mutations must not reach the mapping")

	m.Replace(nil)
	assert.Zero(t, m.Len(), "a nil snapshot replaces with empty contents")
}
