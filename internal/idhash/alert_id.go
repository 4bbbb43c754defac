package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"tokenwatch/internal/domain"
)

// ComputeAlertID computes the deterministic ID for an alert delivery row.
// Formula: SHA256(mint|alert_type|bucket|channel)
// The bucket is the dedup window index (creation time divided by window size),
// so a re-evaluated event inside the same window maps to the same ID.
func ComputeAlertID(mint string, alertType domain.AlertType, bucket int64, channel string) string {
	data := fmt.Sprintf("%s|%s|%d|%s", mint, string(alertType), bucket, channel)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
