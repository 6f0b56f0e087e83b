// Package gzipcodec provides gzip compression around an inner codec.
package gzipcodec

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/hoardkv/hoard/internal/codec"
)

// Compile-time check that Codec implements codec.Codec.
var _ codec.Codec = (*Codec)(nil)

// Codec compresses the inner codec's output with gzip.
type Codec struct {
	inner codec.Codec
}

// New returns a gzip codec wrapping inner.
func New(inner codec.Codec) *Codec {
	return &Codec{inner: inner}
}

// Marshal encodes v with the inner codec and compresses the result.
func (c *Codec) Marshal(v any) ([]byte, error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compressing value: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing value: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decompresses data and decodes it with the inner codec.
func (c *Codec) Unmarshal(data []byte, dest any) error {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decompressing value: %w", err)
	}
	defer r.Close()

	decompressed, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("decompressing value: %w", err)
	}
	return c.inner.Unmarshal(decompressed, dest)
}

// Name returns the inner codec's name with a "+gzip" suffix.
func (c *Codec) Name() string {
	return c.inner.Name() + "+gzip"
}
