// Package id provides identifier generation and classification helpers.
// This is the canonical source for ID handling across the codebase.
package id

import (
	"math/rand"

	"github.com/google/uuid"
)

// UUID generates a random UUID v4 string.
func UUID() string {
	return uuid.NewString()
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// IsNumeric reports whether s consists solely of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// IsIdentifier reports whether a path segment looks like a resource
// identifier: either a bare number or a UUID.
func IsIdentifier(s string) bool {
	return IsNumeric(s) || IsUUID(s)
}

// RandomInt returns a random integer in [1, 999999], suitable for
// synthesized numeric identifiers.
func RandomInt() int {
	return 1 + rand.Intn(999999)
}
