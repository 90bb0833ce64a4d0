package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-derived keys.
// The version suffix allows a future change of encoding.
const (
	DomainFilter = "reelfeed/filter/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
