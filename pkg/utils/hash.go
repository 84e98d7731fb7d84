package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// HashString produces a stable cache key for a question. Input is
// whitespace-trimmed and lowercased so trivially different phrasings of the
// same question share a key.
func HashString(input string) string {
	normalized := strings.ToLower(strings.TrimSpace(input))
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hash)
}
