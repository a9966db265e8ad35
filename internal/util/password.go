package util

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var digestPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// HashPassword returns the lowercase hex SHA-256 digest of plain.
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// IsPasswordDigest reports whether a stored value is already a digest.
func IsPasswordDigest(stored string) bool {
	return digestPattern.MatchString(stored)
}
