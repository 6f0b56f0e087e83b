// Package keyspace handles key namespacing for multi-tenant isolation and
// store-specific key-length limits.
package keyspace

import (
	"crypto/sha256"
	"encoding/hex"
)

// maxKeyLen is the longest raw key passed through unhashed. Redis caps key
// names well above this, but long keys waste memory and bandwidth.
const maxKeyLen = 250

// Namespacer transforms external keys into namespaced backend keys.
type Namespacer struct {
	namespace string
}

// New creates a Namespacer for the given namespace.
func New(namespace string) *Namespacer {
	if namespace == "" {
		namespace = "cache"
	}
	return &Namespacer{namespace: namespace}
}

// Namespace returns the configured namespace.
func (n *Namespacer) Namespace() string {
	return n.namespace
}

// Key returns the backend key for an external key: "<ns>:<key>", with keys
// longer than 250 bytes replaced by their SHA-256 hex digest.
func (n *Namespacer) Key(key string) string {
	return n.namespace + ":" + hashIfLong(key)
}

// TagKey returns the backend key holding the member set for a tag.
func (n *Namespacer) TagKey(tag string) string {
	return n.namespace + ":tags:" + tag
}

// LockKey returns the backend key for a named distributed lock.
func (n *Namespacer) LockKey(name string) string {
	return n.namespace + ":lock:" + name
}

func hashIfLong(key string) string {
	if len(key) <= maxKeyLen {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
