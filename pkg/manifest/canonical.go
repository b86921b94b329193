package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Canonicalization contract for manifest_hash:
//
// The self-hash is computed over the compact JSON encoding of the manifest
// with manifest_hash set to the empty string, all object keys sorted
// lexicographically, no insignificant whitespace, and numbers carried
// through verbatim. Recomputation with any conforming encoder yields the
// same digest; this is an interoperability contract, not an
// implementation detail.

// CanonicalJSON returns the canonical byte form of a manifest used for
// self-hashing.
func CanonicalJSON(m ForensicManifest) ([]byte, error) {
	m.ManifestHash = ""

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	// Round-trip through an untyped value: encoding/json emits map keys in
	// sorted order, which gives the deterministic key ordering the contract
	// requires. UseNumber keeps integers exact.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var untyped any
	if err := dec.Decode(&untyped); err != nil {
		return nil, fmt.Errorf("canonicalize manifest: %w", err)
	}

	canonical, err := json.Marshal(untyped)
	if err != nil {
		return nil, fmt.Errorf("canonicalize manifest: %w", err)
	}
	return canonical, nil
}
