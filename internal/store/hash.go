package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the hex sha256 of a file's text. Two texts hash
// equal iff they are byte-identical.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
