package engine

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashIP hashes a raw IP address for privacy. The hash is the sole visitor
// key throughout storage and caching, so it must be deterministic: no salt,
// no rotation.
func HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}
