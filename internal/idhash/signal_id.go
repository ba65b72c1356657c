package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignalID computes a deterministic signal_id using SHA256.
// Formula: SHA256(ts|symbol|timeframe)
// Returns hex-encoded hash (64 characters).
//
// The inputs are the signal's natural key, so the same evaluation run
// twice always maps to the same id and duplicate inserts collapse.
func ComputeSignalID(timestampMs int64, symbol, timeframe string) string {
	data := fmt.Sprintf("%d|%s|%s", timestampMs, symbol, timeframe)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
