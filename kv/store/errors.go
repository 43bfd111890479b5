package store

import "errors"

var (
	// ErrSerializerEncodeFailed indicates serializing a value failed.
	ErrSerializerEncodeFailed = errors.New("serializer encode failed")
	// ErrSerializerDecodeFailed indicates deserializing a stored value failed.
	ErrSerializerDecodeFailed = errors.New("serializer decode failed")
	// ErrUnsupportedValueType is returned when a value of an unsupported type
	// is handed to a serializer that cannot encode it.
	ErrUnsupportedValueType = errors.New("unsupported value type (want string or []byte)")
)
