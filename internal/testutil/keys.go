package testutil

import (
	"fmt"
	"sync"
)

// DeterministicKeys generates document keys "prefix-1", "prefix-2", ...
//
// Unlike docstore.Sequence, DeterministicKeys can be reset for test reuse,
// so the same scenario run twice stores the same keys.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicKeys struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewDeterministicKeys creates a generator starting at 0. An empty prefix
// means "key".
//
// The first call to NewKey() returns "prefix-1".
func NewDeterministicKeys(prefix string) *DeterministicKeys {
	if prefix == "" {
		prefix = "key"
	}
	return &DeterministicKeys{prefix: prefix}
}

// NewKey increments the sequence and returns the next key.
//
// Implements docstore.KeyGenerator.
func (k *DeterministicKeys) NewKey() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.seq++
	return fmt.Sprintf("%s-%d", k.prefix, k.seq), nil
}

// Current returns the number of keys generated since the last Reset.
func (k *DeterministicKeys) Current() int64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.seq
}

// Reset restarts the sequence. After Reset(), the next key is "prefix-1".
func (k *DeterministicKeys) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.seq = 0
}

// FixedKey generates the same key every time.
//
// Inserting twice through a FixedKey generator exercises duplicate-key
// handling without spelling out _key in every document.
//
// Thread-safety: FixedKey is stateless and safe for concurrent use.
type FixedKey string

// NewKey returns the fixed key, or "fixed" if it is empty.
func (k FixedKey) NewKey() (string, error) {
	if k == "" {
		return "fixed", nil
	}
	return string(k), nil
}
