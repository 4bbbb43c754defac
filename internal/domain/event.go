package domain

import "encoding/json"

// RawEvent is one normalized token-launch message from the stream source.
// Immutable once built by the listener; consumed exactly once by a dispatch unit.
type RawEvent struct {
	Mint            string  // token mint address, unique per token
	Name            string  // token name (sanitized, may be empty)
	Symbol          string  // token symbol (sanitized, may be empty)
	VolumeSOL       float64 // trading volume proxy in SOL
	Holders         int64   // unique holder count (0 at create time)
	MarketCapUSD    float64 // estimated market cap in USD
	LiquiditySOL    float64 // SOL in the bonding curve / liquidity pool
	LiquidityUSD    float64 // liquidity in USD
	PriceChangePct  float64 // recent price change percent, if known
	AgeSeconds      int64   // token age at observation; 0 for create events
	DevHoldPct      float64 // developer wallet hold percentage
	Top10HoldPct    float64 // top-10 wallet hold percentage
	MintAuthority   bool    // mint authority still active (not revoked)
	MetadataFrozen  bool    // token metadata frozen
	Twitter         string  // linked Twitter URL, empty if none
	Telegram        string  // linked Telegram URL, empty if none
	Website         string  // linked website URL, empty if none
	Source          Source  // stream source tag
	SourceTimestamp int64   // Unix timestamp in milliseconds from the source

	Raw json.RawMessage // original wire payload, stored verbatim
}

// HasSocials reports whether the token links at least one social channel.
func (e *RawEvent) HasSocials() bool {
	return e.Twitter != "" || e.Telegram != "" || e.Website != ""
}
