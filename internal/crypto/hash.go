// this file provides the SHA-256 hashing functions used across the certificate pipeline.
//
// SHA-256 hex digests are used for:
//   1. Canonical JSON claims (the tamper-evidence hash stored with each certificate)
//   2. Canonical signable strings (record-level audit checksums)

package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Hash calculates a SHA-256 checksum (hash) and returns it as a hex string.
//
// Use this for:
// - Canonical JSON
// - Canonical signable strings
// - Any data already in memory
func Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("data is empty")
	}
	hasher := sha256.New()

	if _, err := io.Copy(hasher, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to hash data: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifyHash verifies that data matches the expected SHA-256 checksum.
func VerifyHash(data []byte, expectedChecksum string) bool {
	checksum, _ := Hash(data)
	return checksum == expectedChecksum
}
