package keyspace

import (
	"strings"
	"testing"
)

func TestNamespacer_Key(t *testing.T) {
	n := New("tenant1")

	if got := n.Key("user:123"); got != "tenant1:user:123" {
		t.Errorf("Key() = %q, want %q", got, "tenant1:user:123")
	}
}

func TestNamespacer_DefaultNamespace(t *testing.T) {
	n := New("")

	if got := n.Key("k"); got != "cache:k" {
		t.Errorf("Key() = %q, want %q", got, "cache:k")
	}
}

func TestNamespacer_LongKeyHashed(t *testing.T) {
	n := New("ns")

	long := strings.Repeat("x", 300)
	got := n.Key(long)

	// "ns:" prefix plus a 64-char hex SHA-256 digest.
	if len(got) != 3+64 {
		t.Errorf("Key() length = %d, want %d", len(got), 3+64)
	}
	if strings.Contains(got, "xxx") {
		t.Errorf("Key() = %q, long key should be hashed", got)
	}

	// Hashing must be stable.
	if again := n.Key(long); again != got {
		t.Errorf("Key() not stable: %q != %q", again, got)
	}
}

func TestNamespacer_BoundaryNotHashed(t *testing.T) {
	n := New("ns")

	exact := strings.Repeat("k", 250)
	if got := n.Key(exact); got != "ns:"+exact {
		t.Errorf("Key() unexpectedly hashed a 250-byte key")
	}
}

func TestNamespacer_TagAndLockKeys(t *testing.T) {
	n := New("ns")

	if got := n.TagKey("users"); got != "ns:tags:users" {
		t.Errorf("TagKey() = %q, want %q", got, "ns:tags:users")
	}
	if got := n.LockKey("compute:user:1"); got != "ns:lock:compute:user:1" {
		t.Errorf("LockKey() = %q, want %q", got, "ns:lock:compute:user:1")
	}
}
