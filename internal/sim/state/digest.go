package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Digest is a stable fingerprint of w used by day logs and replays.
// Two worlds with the same digest are indistinguishable to the engine.
func (w *World) Digest() string {
	b, err := json.Marshal(w)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
