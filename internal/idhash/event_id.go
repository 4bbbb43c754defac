package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"tokenwatch/internal/domain"
)

// ComputeEventID computes the deterministic idempotency key for a raw event.
// Formula: SHA256(mint|source|source_timestamp_ms)
// Returns hex-encoded hash (64 characters). Reprocessing the same event always
// yields the same ID, which is what makes unit retries safe.
func ComputeEventID(mint string, source domain.Source, sourceTimestamp int64) string {
	data := fmt.Sprintf("%s|%s|%d", mint, string(source), sourceTimestamp)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
