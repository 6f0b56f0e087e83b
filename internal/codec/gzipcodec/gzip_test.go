package gzipcodec

import (
	"bytes"
	"testing"

	"github.com/hoardkv/hoard/internal/codec/jsoncodec"
)

func TestCodec_RoundTrip(t *testing.T) {
	c := New(jsoncodec.New())

	original := map[string]any{"name": "Ana", "age": float64(30)}

	data, err := c.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := c.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded["name"] != "Ana" {
		t.Errorf("decoded name = %v, want Ana", decoded["name"])
	}
	if decoded["age"] != float64(30) {
		t.Errorf("decoded age = %v, want 30", decoded["age"])
	}
}

func TestCodec_Compresses(t *testing.T) {
	c := New(jsoncodec.New())

	// Highly repetitive payload should shrink.
	value := string(bytes.Repeat([]byte("abcdef"), 1000))

	compressed, err := c.Marshal(value)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	plain, err := jsoncodec.New().Marshal(value)
	if err != nil {
		t.Fatalf("json Marshal() error = %v", err)
	}

	if len(compressed) >= len(plain) {
		t.Errorf("compressed size = %d, want < %d", len(compressed), len(plain))
	}
}

func TestCodec_Name(t *testing.T) {
	c := New(jsoncodec.New())
	if got := c.Name(); got != "json+gzip" {
		t.Errorf("Name() = %q, want %q", got, "json+gzip")
	}
}

func TestCodec_UnmarshalGarbage(t *testing.T) {
	c := New(jsoncodec.New())

	var dest string
	if err := c.Unmarshal([]byte("not gzip data"), &dest); err == nil {
		t.Error("Unmarshal() of garbage should fail")
	}
}
