package domain

import "encoding/json"

// DeadLetter is the terminal, inspectable record for a unit of work that
// failed after exhausting retries. Never silently discarded.
type DeadLetter struct {
	Time      int64           // dead-letter Unix timestamp in milliseconds
	EventID   string          // idempotency key of the failed unit
	Mint      string          // token mint address
	Attempts  int             // processing attempts made before giving up
	LastError string          // final error message
	Payload   json.RawMessage // normalized RawEvent payload for replay
}
