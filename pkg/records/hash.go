package records

import (
	"crypto/md5" //nolint:gosec // change detection only, not a security boundary
	"encoding/hex"
)

// ContentHash returns a fixed-length hex fingerprint of text, stable across
// processes and platforms.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
