package scoring

import (
	"math"
	"testing"

	"tokenwatch/internal/domain"
)

func TestTierScore(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		tiers []tier
		want  float64
	}{
		{"liquidity max", 600, liquidityTiers, 100},
		{"liquidity exact threshold", 500, liquidityTiers, 100},
		{"liquidity mid", 75, liquidityTiers, 60},
		{"liquidity floor", 1, liquidityTiers, 5},
		{"liquidity negative", -1, liquidityTiers, 0},
		{"volume floor", 0.5, volumeTiers, 10},
		{"holders mid", 250, holderTiers, 60},
		{"holders zero", 0, holderTiers, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tierScore(tt.value, tt.tiers); got != tt.want {
				t.Errorf("tierScore(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestRecencyScore(t *testing.T) {
	tests := []struct {
		age  int64
		want float64
	}{
		{0, 100},
		{299, 100},
		{300, 70},
		{3599, 70},
		{3600, 30},
		{86399, 30},
		{86400, 0},
	}

	for _, tt := range tests {
		if got := recencyScore(tt.age); got != tt.want {
			t.Errorf("recencyScore(%d) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestScoreStrongToken(t *testing.T) {
	s := NewScorer(DefaultConfig())

	e := &domain.RawEvent{
		Mint:           "StrongMint",
		LiquiditySOL:   600,  // 100
		VolumeSOL:      150,  // 100
		Holders:        1500, // 100
		PriceChangePct: 100,  // 100
		AgeSeconds:     60,   // 100
	}
	social := 100.0

	score, factors := s.Score(e, &social, nil)

	// All components maxed, weights sum to 1.0.
	if math.Abs(score-100) > 0.0001 {
		t.Errorf("expected score 100, got %v", score)
	}
	if len(factors) != 6 {
		t.Fatalf("expected 6 factors, got %d", len(factors))
	}

	var sum float64
	for _, f := range factors {
		if f.Weighted != f.Value*f.Weight {
			t.Errorf("factor %s: weighted %v != value %v * weight %v", f.Name, f.Weighted, f.Value, f.Weight)
		}
		sum += f.Weighted
	}
	if math.Abs(sum-100) > 0.0001 {
		t.Errorf("factor contributions sum to %v, want 100", sum)
	}
}

func TestScoreMissingSocialIsNeutral(t *testing.T) {
	s := NewScorer(DefaultConfig())
	e := &domain.RawEvent{LiquiditySOL: 100, VolumeSOL: 50, Holders: 500, AgeSeconds: 100}

	zero := 0.0
	withZero, _ := s.Score(e, &zero, nil)
	withNil, _ := s.Score(e, nil, nil)

	if withZero != withNil {
		t.Errorf("nil social score should equal zero: %v vs %v", withZero, withNil)
	}
}

func TestScoreFlagPenalty(t *testing.T) {
	s := NewScorer(DefaultConfig())
	e := &domain.RawEvent{LiquiditySOL: 600, VolumeSOL: 150, Holders: 1500, AgeSeconds: 60}

	base, _ := s.Score(e, nil, nil)
	// Cosmetic flags penalize without capping.
	flagged, _ := s.Score(e, nil, []domain.RiskFlag{domain.FlagNoSocials, domain.FlagCopycatName})

	if math.Abs((base-flagged)-20) > 0.0001 {
		t.Errorf("expected 10-point penalty per flag: base %v, flagged %v", base, flagged)
	}
}

func TestScoreCriticalCeiling(t *testing.T) {
	s := NewScorer(DefaultConfig())

	// Strong components, but a critical flag present.
	e := &domain.RawEvent{LiquiditySOL: 600, VolumeSOL: 150, Holders: 1500, PriceChangePct: 100, AgeSeconds: 60}
	social := 100.0

	score, _ := s.Score(e, &social, []domain.RiskFlag{domain.FlagMintAuthorityActive})
	if score > 20 {
		t.Errorf("expected score capped at 20 with critical flag, got %v", score)
	}
}

func TestScoreRugScenario(t *testing.T) {
	s := NewScorer(DefaultConfig())

	// Thin token with critical flags never crosses the high-score threshold.
	e := &domain.RawEvent{
		Mint:         "M1",
		LiquidityUSD: 50,
		Holders:      3,
		VolumeSOL:    0.1,
	}
	flags := []domain.RiskFlag{domain.FlagLowLiquidity, domain.FlagLowHolderCount}

	score, _ := s.Score(e, nil, flags)
	if score > 20 {
		t.Errorf("expected score <= 20 for rug scenario, got %v", score)
	}
}

func TestScoreClampedToRange(t *testing.T) {
	s := NewScorer(DefaultConfig())

	// Enough flags to drive the raw composite negative.
	e := &domain.RawEvent{AgeSeconds: 100000}
	flags := []domain.RiskFlag{
		domain.FlagNoSocials, domain.FlagCopycatName, domain.FlagFrozenMetadata,
		domain.FlagUnknown,
	}

	score, _ := s.Score(e, nil, flags)
	if score < 0 {
		t.Errorf("score must not go below 0, got %v", score)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer(DefaultConfig())
	e := &domain.RawEvent{LiquiditySOL: 42, VolumeSOL: 17, Holders: 123, PriceChangePct: 12.5, AgeSeconds: 500}
	social := 55.0
	flags := []domain.RiskFlag{domain.FlagNoSocials}

	s1, f1 := s.Score(e, &social, flags)
	s2, f2 := s.Score(e, &social, flags)

	if s1 != s2 {
		t.Errorf("score not deterministic: %v vs %v", s1, s2)
	}
	if len(f1) != len(f2) {
		t.Fatalf("factor count mismatch: %d vs %d", len(f1), len(f2))
	}
	for i := range f1 {
		if f1[i] != f2[i] {
			t.Errorf("factor %d differs: %+v vs %+v", i, f1[i], f2[i])
		}
	}
}

func TestScoreNegativeMomentumIgnored(t *testing.T) {
	s := NewScorer(DefaultConfig())

	flat := &domain.RawEvent{LiquiditySOL: 50, AgeSeconds: 100}
	dumping := &domain.RawEvent{LiquiditySOL: 50, AgeSeconds: 100, PriceChangePct: -80}

	s1, _ := s.Score(flat, nil, nil)
	s2, _ := s.Score(dumping, nil, nil)
	if s1 != s2 {
		t.Errorf("negative momentum should score zero, not penalize: %v vs %v", s1, s2)
	}
}
