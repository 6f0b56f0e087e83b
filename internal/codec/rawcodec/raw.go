// Package rawcodec provides a passthrough codec for string and []byte values.
package rawcodec

import (
	"fmt"

	"github.com/hoardkv/hoard/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec stores string and []byte values as-is without any encoding.
// Other types are rejected.
type Codec struct{}

// New returns a new raw codec.
func New() *Codec {
	return &Codec{}
}

// Marshal returns the value's bytes unchanged.
func (c *Codec) Marshal(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		return nil, fmt.Errorf("rawcodec: unsupported type %T", v)
	}
}

// Unmarshal copies data into dest, which must be *[]byte or *string.
func (c *Codec) Unmarshal(data []byte, dest any) error {
	switch d := dest.(type) {
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	case *string:
		*d = string(data)
		return nil
	default:
		return fmt.Errorf("rawcodec: unsupported destination type %T", dest)
	}
}

// Name returns "raw".
func (c *Codec) Name() string {
	return "raw"
}
