package usfm

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Checksum returns the hex BLAKE3 digest of a USFM text. Export
// manifests carry it so a re-import can verify the bundle was not
// altered in transit.
func Checksum(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
