// Package codec provides value encoding for cache storage.
// Codecs are selected at construction time, never by runtime type
// inspection, so backends and strategies only ever see opaque bytes.
package codec

// Codec encodes and decodes cache values.
type Codec interface {
	// Marshal encodes v into bytes for storage.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes data into dest, which must be a pointer.
	Unmarshal(data []byte, dest any) error
	// Name returns a short identifier (e.g., "json", "json+zstd").
	Name() string
}
