package docstore

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MaxKeyLength is the longest document key accepted, in bytes.
const MaxKeyLength = 254

// KeyGenerator produces keys for documents inserted without one.
type KeyGenerator interface {
	NewKey() (string, error)
}

// UUIDv7 generates time-ordered UUID version 7 keys.
type UUIDv7 struct{}

func (UUIDv7) NewKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return id.String(), nil
}

// Sequence generates prefix-1, prefix-2, ... and is safe for concurrent
// use. It makes generated keys predictable in tests and golden files.
type Sequence struct {
	Prefix string

	mu sync.Mutex
	n  int
}

func (s *Sequence) NewKey() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.Prefix, s.n), nil
}

// KeyGeneratorFor returns the generator registered under name:
// "uuidv7" (or "") and "sequence".
func KeyGeneratorFor(name string) (KeyGenerator, error) {
	switch name {
	case "", "uuidv7":
		return UUIDv7{}, nil
	case "sequence":
		return &Sequence{Prefix: "doc"}, nil
	}
	return nil, fmt.Errorf("unknown key generator %q", name)
}

// ValidateKey checks a document key: 1 to MaxKeyLength bytes of letters,
// digits and the punctuation _-:.@()+,=;$!*'%.
func ValidateKey(key string) error {
	if key == "" || len(key) > MaxKeyLength {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	for _, r := range key {
		if !keyRune(r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidKey, key, r)
		}
	}
	return nil
}

func keyRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '_', '-', ':', '.', '@', '(', ')', '+', ',', '=', ';', '$', '!', '*', '\'', '%':
		return true
	}
	return false
}

// ValidateCollectionName checks a collection name: a letter or underscore
// followed by up to 255 letters, digits, underscores or dashes.
func ValidateCollectionName(name string) error {
	if name == "" || len(name) > 256 {
		return fmt.Errorf("%w: length %d", ErrInvalidName, len(name))
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r >= '0' && r <= '9'):
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
