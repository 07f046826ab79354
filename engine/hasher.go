package engine

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the lowercase hex SHA-256 digest of the file contents.
// Two uploads with the same digest are treated as the same resume within a
// batch, regardless of filename.
func ContentHash(contents []byte) string {
	sum := sha256.Sum256(contents)
	return hex.EncodeToString(sum[:])
}
