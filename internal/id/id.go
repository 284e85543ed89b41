package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ID prefixes for each entity kind.
const (
	PrefixSnippet  = "snp"
	PrefixFragment = "frg"
	PrefixUser     = "usr"
	PrefixAPIKey   = "key"
	PrefixSSE      = "sse"
	// PrefixPlaceholder marks client-side records that have not been
	// confirmed by the server yet.
	PrefixPlaceholder = "tmp"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "snp-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// alphanumeric excludes '-' and '_' so secrets can be embedded in
// underscore-delimited tokens.
const alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Secret returns a random alphanumeric string of n characters.
// Used for API key identifiers and secrets.
func Secret(n int) (string, error) {
	s, err := gonanoid.Generate(alphanumeric, n)
	if err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return s, nil
}

// IsPlaceholder reports whether id was minted by a client for an
// unconfirmed record.
func IsPlaceholder(id string) bool {
	return len(id) > len(PrefixPlaceholder) && id[:len(PrefixPlaceholder)+1] == PrefixPlaceholder+"-"
}
