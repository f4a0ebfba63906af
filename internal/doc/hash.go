package doc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with stored revisions.
const (
	DomainRevision = "docql/revision/v1"
	DomainQuery    = "docql/query/v1"
)

// RevisionLength is the number of hex characters kept from a revision hash.
const RevisionLength = 16

// hashWithDomain computes SHA256(domain + 0x00 + data) in hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Revision computes the content revision of a document body. System
// attributes are ignored, so the same body always has the same revision
// whatever its key.
func Revision(body Object) (string, error) {
	canonical, err := MarshalCanonical(StripSystem(body))
	if err != nil {
		return "", fmt.Errorf("revision: %w", err)
	}
	return hashWithDomain(DomainRevision, canonical)[:RevisionLength], nil
}

// MustRevision is like Revision but panics on error.
// Use only in tests or when the body is known to be valid.
func MustRevision(body Object) string {
	rev, err := Revision(body)
	if err != nil {
		panic(err)
	}
	return rev
}

// QueryHash identifies a translated statement by its SQL text and bound
// parameters. It is stable across runs for the same query.
func QueryHash(sql string, params []any) (string, error) {
	canonical, err := MarshalCanonical(Object{"sql": sql, "params": anySlice(params)})
	if err != nil {
		return "", fmt.Errorf("query hash: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

func anySlice(params []any) []any {
	if params == nil {
		return []any{}
	}
	return params
}
