package audit

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex-encoded SHA-256 of content. Deterministic, pure,
// never fails for well-formed input. Used for audit-event commitments,
// input-snapshot fingerprints, prompt commitments and output commitments.
func Digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DigestString is a convenience wrapper for string input.
func DigestString(content string) string {
	return Digest([]byte(content))
}
