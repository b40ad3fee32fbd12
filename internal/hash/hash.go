package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Buffer is the hex sha256 of b
func Buffer(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
