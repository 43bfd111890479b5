package store

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Serializer encodes rich values to bytes before they enter the mapping core
// and decodes them back on the way out. The mapping and the blob store only
// ever see the encoded form.
type Serializer interface {
	// Serialize encodes value into a byte slice owned by the caller.
	Serialize(value any) ([]byte, error)

	// Deserialize decodes a stored byte slice back into a value.
	Deserialize(data []byte) (any, error)
}

// JSONSerializer round-trips arbitrary JSON-encodable values. Note the usual
// encoding/json caveat: numbers come back as float64.
type JSONSerializer struct{}

// NewJSONSerializer returns a JSONSerializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Serialize encodes value as JSON.
func (s *JSONSerializer) Serialize(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializerEncodeFailed, err)
	}

	return data, nil
}

// Deserialize decodes JSON back into the generic representation
// (map[string]any, []any, float64, string, bool, nil).
func (s *JSONSerializer) Deserialize(data []byte) (any, error) {
	var value any

	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializerDecodeFailed, err)
	}

	return value, nil
}

// StringSerializer stores string and []byte values as raw bytes and always
// returns them as strings. Any other type is rejected.
type StringSerializer struct{}

// NewStringSerializer returns a StringSerializer.
func NewStringSerializer() *StringSerializer {
	return &StringSerializer{}
}

// Serialize accepts string and []byte values only. Byte slices are copied so
// later caller mutations cannot reach into the store.
func (s *StringSerializer) Serialize(value any) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return slices.Clone(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValueType, value)
	}
}

// Deserialize returns the stored bytes as a string.
func (s *StringSerializer) Deserialize(data []byte) (any, error) {
	return string(data), nil
}
