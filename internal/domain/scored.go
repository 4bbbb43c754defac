package domain

// RiskFlag is a named rug/risk indicator produced by the risk checklist.
type RiskFlag string

const (
	FlagLowLiquidity        RiskFlag = "low_liquidity"
	FlagLowHolderCount      RiskFlag = "low_holder_count"
	FlagDevConcentration    RiskFlag = "dev_concentration"
	FlagWhaleConcentration  RiskFlag = "whale_concentration"
	FlagNoSocials           RiskFlag = "no_socials"
	FlagMintAuthorityActive RiskFlag = "mint_authority_active"
	FlagFrozenMetadata      RiskFlag = "frozen_metadata"
	FlagCopycatName         RiskFlag = "copycat_name"

	// FlagUnknown records a checklist entry that errored instead of aborting
	// the remaining checks.
	FlagUnknown RiskFlag = "unknown"
)

// ScoreFactor is one weighted component of a composite score, kept for audit.
type ScoreFactor struct {
	Name     string  // component name, e.g. "liquidity"
	Value    float64 // raw sub-score in [0, 100]
	Weight   float64 // configured weight
	Weighted float64 // Value * Weight contribution
}

// ScoredEvent is a RawEvent plus its composite score and risk classification.
// Created once per dispatch unit; immutable after creation; written append-only.
type ScoredEvent struct {
	Event       RawEvent
	Score       float64       // composite score in [0, 100]
	SocialScore *float64      // cached social velocity score, nil if unavailable
	RiskFlags   []RiskFlag    // ordered checklist output
	Factors     []ScoreFactor // contributing components for auditability
	ScoredAt    int64         // Unix timestamp in milliseconds of scoring
}

// SocialOrZero returns the social score, treating an absent value as neutral.
func (s *ScoredEvent) SocialOrZero() float64 {
	if s.SocialScore == nil {
		return 0
	}
	return *s.SocialScore
}

// HasFlag reports whether the scored event carries the given risk flag.
func (s *ScoredEvent) HasFlag(f RiskFlag) bool {
	for _, flag := range s.RiskFlags {
		if flag == f {
			return true
		}
	}
	return false
}
