package media

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"lukechampine.com/blake3"
)

// NewHasher returns the hash used for upload fingerprints
func NewHasher() hash.Hash {
	return blake3.New(32, nil)
}

// Fingerprint returns the hex BLAKE3 digest of everything read from r
func Fingerprint(r io.Reader) (string, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("calculating blake3 fingerprint: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
