// Package service contains the short-link core: identifier generation, the
// API-key codec, session authentication and the link CRUD service.
package service

import (
	"crypto/rand"
	"regexp"
)

// idAlphabet is the URL-safe alphabet short identifiers and salts are drawn
// from. Its length is a power of two, so masking a random byte selects a
// character without modulo bias.
const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

const (
	// DefaultIDLength is the length of auto-assigned identifiers.
	DefaultIDLength = 6

	// SaltLength is the length of per-user key salts. The salt doubles as
	// the AES-256 key during API-key derivation, so it must be 32 bytes.
	SaltLength = 32

	// maxIDLength is the cap Sanitize trims caller-chosen identifiers to.
	maxIDLength = 50
)

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// GenerateID produces a cryptographically random identifier of length n.
// The leading character is never an underscore, so generated identifiers
// always satisfy the identifier rule by construction.
func GenerateID(n int) string {
	buf := make([]byte, n)
	out := make([]byte, n)

	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}

	for i, b := range buf {
		out[i] = idAlphabet[b&63]
	}

	for out[0] == '_' {
		b := make([]byte, 1)
		if _, err := rand.Read(b); err != nil {
			panic(err)
		}
		out[0] = idAlphabet[b[0]&63]
	}

	return string(out)
}

// SanitizeID strips characters unsafe for a URL path segment and trims the
// result to the maximum identifier length. It returns the empty string when
// nothing usable remains; callers then fall back to GenerateID. SanitizeID
// is idempotent.
func SanitizeID(candidate string) string {
	clean := unsafeIDChars.ReplaceAllString(candidate, "")
	if len(clean) > maxIDLength {
		clean = clean[:maxIDLength]
	}
	return clean
}
