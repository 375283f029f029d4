package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a SHA-256 content hash used as a cache key.
type Digest [32]byte

func HashBytes(b []byte) Digest {
	return Digest(sha256.Sum256(b))
}

// Combine folds dependencies into a key: H(content || dep1 || dep2 ...).
// Callers pass deps in a fixed order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
