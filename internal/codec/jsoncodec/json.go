// Package jsoncodec provides a JSON value codec.
package jsoncodec

import (
	"encoding/json"

	"github.com/hoardkv/hoard/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec encodes values as JSON.
type Codec struct{}

// New returns a new JSON codec.
func New() *Codec {
	return &Codec{}
}

// Marshal encodes v as JSON.
func (c *Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into dest.
func (c *Codec) Unmarshal(data []byte, dest any) error {
	return json.Unmarshal(data, dest)
}

// Name returns "json".
func (c *Codec) Name() string {
	return "json"
}
