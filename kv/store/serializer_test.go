package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJSONSerializer_RoundTrip verifies structured values survive the
// encode/decode cycle, with the usual encoding/json number caveat.
func TestJSONSerializer_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewJSONSerializer()

	data, err := s.Serialize(map[string]any{"n": 1, "s": "x"})
	require.NoError(t, err)

	decoded, err := s.Deserialize(data)
	require.NoError(t, err)

	m, ok := decoded.(map[string]any)
	require.True(t, ok, "expected a decoded object, got %T", decoded)
	assert.EqualValues(t, 1, m["n"], "numbers come back as float64")
	assert.Equal(t, "x", m["s"])
}

// TestJSONSerializer_DecodeFailure verifies damaged payloads surface the
// decode sentinel.
func TestJSONSerializer_DecodeFailure(t *testing.T) {
	t.Parallel()

	s := NewJSONSerializer()

	_, err := s.Deserialize([]byte("{not json"))
	require.ErrorIs(t, err, ErrSerializerDecodeFailed)
}

// TestStringSerializer verifies string/[]byte round-trips and the rejection
// of everything else.
func TestStringSerializer(t *testing.T) {
	t.Parallel()

	s := NewStringSerializer()

	data, err := s.Serialize("hello")
	require.NoError(t, err)

	decoded, err := s.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded)

	raw := []byte("bytes")

	data, err = s.Serialize(raw)
	require.NoError(t, err)

	raw[0] = 'X'
	assert.Equal(t, []byte("bytes"), data, "serialized bytes must be a copy")

	_, err = s.Serialize(42)
	require.ErrorIs(t, err, ErrUnsupportedValueType)
}
