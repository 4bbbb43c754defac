package domain

import "encoding/json"

// ScanRecord is one social-scan sweep result in the nova_scans table.
// Written exclusively by the external social refresher; read-only to the pipeline.
type ScanRecord struct {
	Time          int64           // scan Unix timestamp in milliseconds
	Platform      string          // comma-joined platforms covered, e.g. "twitter,reddit"
	ScanType      string          // "full" or "targeted"
	Keywords      []string        // search keywords for targeted scans
	ResultsCount  int             // total signals found across platforms
	ScanDurationS float64         // wall-clock scan duration in seconds
	Raw           json.RawMessage // scan detail payload
}
