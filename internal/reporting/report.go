// Package reporting builds the operator digest: what the pipeline observed,
// alerted on, and failed to process over a time window.
package reporting

import "time"

// Report is the digest structure rendered to Markdown and CSV.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	WindowStart int64 // Unix ms
	WindowEnd   int64 // Unix ms

	Summary Summary

	// TopTokens is sorted by score descending.
	TopTokens []TokenRow

	// PendingAlerts lists undelivered alert rows, oldest first.
	PendingAlerts []PendingAlertRow

	// DeadLetters lists units that exhausted processing retries, oldest first.
	DeadLetters []DeadLetterRow

	// ScanActivity summarizes the social refresher's sweeps in the window.
	ScanActivity ScanActivity
}

// Summary contains window-level counts.
type Summary struct {
	TopTokenCount     int
	PendingAlertCount int
	GatedAlertCount   int
	DeadLetterCount   int
	ScanCount         int
}

// TokenRow is one scored token in the top-N table.
type TokenRow struct {
	Mint         string
	Symbol       string
	Score        float64
	SocialScore  float64
	LiquiditySOL float64
	VolumeSOL    float64
	Holders      int64
	RiskFlags    []string
	ScoredAt     int64 // Unix ms
}

// PendingAlertRow is one undelivered alert row.
type PendingAlertRow struct {
	ID       string
	Mint     string
	Symbol   string
	Type     string
	Score    float64
	Channel  string
	Time     int64 // Unix ms
	Gated    bool  // awaiting manual approval
	Approved bool
}

// DeadLetterRow is one exhausted unit.
type DeadLetterRow struct {
	EventID   string
	Mint      string
	Attempts  int
	LastError string
	Time      int64 // Unix ms
}

// ScanActivity summarizes nova_scans rows in the window.
type ScanActivity struct {
	ScanCount    int
	TotalResults int
	Platforms    []string // distinct, sorted
	LastScanAt   int64    // Unix ms, 0 when no scans
}
