// Package zstdcodec provides zstd compression around an inner codec.
package zstdcodec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/hoardkv/hoard/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec compresses the inner codec's output with zstd.
type Codec struct {
	inner   codec.Codec
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New returns a zstd codec wrapping inner.
func New(inner codec.Codec) (*Codec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &Codec{inner: inner, encoder: encoder, decoder: decoder}, nil
}

// Marshal encodes v with the inner codec and compresses the result.
func (c *Codec) Marshal(v any) ([]byte, error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.encoder.EncodeAll(data, nil), nil
}

// Unmarshal decompresses data and decodes it with the inner codec.
func (c *Codec) Unmarshal(data []byte, dest any) error {
	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("decompressing value: %w", err)
	}
	return c.inner.Unmarshal(decompressed, dest)
}

// Name returns the inner codec's name with a "+zstd" suffix.
func (c *Codec) Name() string {
	return c.inner.Name() + "+zstd"
}
