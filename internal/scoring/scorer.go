package scoring

import (
	"tokenwatch/internal/domain"
	"tokenwatch/internal/risk"
)

// Weights configure each component's share of the composite score.
// The production set sums to 1.0.
type Weights struct {
	Liquidity float64
	Volume    float64
	Holders   float64
	Social    float64
	Momentum  float64
	Recency   float64
}

// Config configures the scorer policy.
type Config struct {
	Weights Weights
	// FlagPenalty is subtracted from the composite once per risk flag.
	FlagPenalty float64
	// CriticalCeiling caps the final score when any critical flag is present.
	CriticalCeiling float64
}

// DefaultConfig returns the production scoring policy.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Liquidity: 0.25,
			Volume:    0.20,
			Holders:   0.15,
			Social:    0.20,
			Momentum:  0.10,
			Recency:   0.10,
		},
		FlagPenalty:     10,
		CriticalCeiling: 20,
	}
}

type tier struct {
	threshold float64
	score     float64
}

// Tier tables map raw on-chain values onto sub-scores. First matching
// threshold wins; values below every threshold score zero.
var (
	liquidityTiers = []tier{
		{500, 100},
		{100, 80},
		{50, 60},
		{20, 40},
		{5, 20},
		{0, 5},
	}
	volumeTiers = []tier{
		{100, 100},
		{50, 80},
		{20, 60},
		{10, 40},
		{5, 20},
		{0, 10},
	}
	holderTiers = []tier{
		{1000, 100},
		{500, 80},
		{200, 60},
		{100, 40},
		{50, 20},
		{0, 5},
	}
)

func tierScore(value float64, tiers []tier) float64 {
	for _, t := range tiers {
		if value >= t.threshold {
			return t.score
		}
	}
	return 0
}

// recencyScore rewards freshly launched tokens. Zero age means the event was
// observed at creation.
func recencyScore(ageSeconds int64) float64 {
	switch {
	case ageSeconds < 300:
		return 100
	case ageSeconds < 3600:
		return 70
	case ageSeconds < 86400:
		return 30
	default:
		return 0
	}
}

// Scorer computes composite scores. Pure: deterministic for identical inputs,
// no side effects.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer with the given policy.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the composite score for an event. socialScore is the cached
// social velocity value, nil when the cache has nothing for the mint — an
// absent value scores the social component zero rather than failing. The
// returned factors record every component's contribution for audit.
func (s *Scorer) Score(e *domain.RawEvent, socialScore *float64, flags []domain.RiskFlag) (float64, []domain.ScoreFactor) {
	var social float64
	if socialScore != nil {
		social = clamp(*socialScore, 0, 100)
	}

	momentum := clamp(e.PriceChangePct, 0, 100)

	components := []struct {
		name   string
		value  float64
		weight float64
	}{
		{"liquidity", tierScore(e.LiquiditySOL, liquidityTiers), s.cfg.Weights.Liquidity},
		{"volume", tierScore(e.VolumeSOL, volumeTiers), s.cfg.Weights.Volume},
		{"holders", tierScore(float64(e.Holders), holderTiers), s.cfg.Weights.Holders},
		{"social", social, s.cfg.Weights.Social},
		{"momentum", momentum, s.cfg.Weights.Momentum},
		{"recency", recencyScore(e.AgeSeconds), s.cfg.Weights.Recency},
	}

	var total float64
	factors := make([]domain.ScoreFactor, 0, len(components))
	for _, c := range components {
		weighted := c.value * c.weight
		total += weighted
		factors = append(factors, domain.ScoreFactor{
			Name:     c.name,
			Value:    c.value,
			Weight:   c.weight,
			Weighted: weighted,
		})
	}

	total -= float64(len(flags)) * s.cfg.FlagPenalty
	total = clamp(total, 0, 100)

	// Rug-risk override: structural flags cap the score regardless of how
	// strong the other components are.
	if risk.HasCritical(flags) && total > s.cfg.CriticalCeiling {
		total = s.cfg.CriticalCeiling
	}

	return total, factors
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
