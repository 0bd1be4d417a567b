package imaging

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex sha256 of an encoded image. Identical encoded
// bytes hash identically, which is the dedup key for rasters recovered
// fresh on every paint.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
