package risk

import (
	"reflect"
	"testing"

	"tokenwatch/internal/domain"
)

// cleanEvent returns an event that trips no checks under default thresholds.
func cleanEvent() *domain.RawEvent {
	return &domain.RawEvent{
		Mint:         "CleanMint",
		Name:         "Solid Token",
		LiquiditySOL: 50,
		Holders:      200,
		DevHoldPct:   10,
		Top10HoldPct: 40,
		Twitter:      "https://x.com/solid",
	}
}

func TestFilterCleanEvent(t *testing.T) {
	f := NewFilter(DefaultThresholds())

	flags := f.Evaluate(cleanEvent())
	if len(flags) != 0 {
		t.Errorf("expected no flags for clean event, got %v", flags)
	}
}

func TestFilterChecklist(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.RawEvent)
		want   domain.RiskFlag
	}{
		{"low liquidity", func(e *domain.RawEvent) { e.LiquiditySOL = 4.9 }, domain.FlagLowLiquidity},
		{"low holders", func(e *domain.RawEvent) { e.Holders = 9 }, domain.FlagLowHolderCount},
		{"dev concentration", func(e *domain.RawEvent) { e.DevHoldPct = 51 }, domain.FlagDevConcentration},
		{"whale concentration", func(e *domain.RawEvent) { e.Top10HoldPct = 81 }, domain.FlagWhaleConcentration},
		{"no socials", func(e *domain.RawEvent) { e.Twitter = "" }, domain.FlagNoSocials},
		{"mint authority", func(e *domain.RawEvent) { e.MintAuthority = true }, domain.FlagMintAuthorityActive},
		{"frozen metadata", func(e *domain.RawEvent) { e.MetadataFrozen = true }, domain.FlagFrozenMetadata},
		{"copycat name", func(e *domain.RawEvent) { e.Name = "Solid Token 2.0" }, domain.FlagCopycatName},
		{"copycat case insensitive", func(e *domain.RawEvent) { e.Name = "OFFICIAL Solid" }, domain.FlagCopycatName},
	}

	f := NewFilter(DefaultThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := cleanEvent()
			tt.mutate(e)
			flags := f.Evaluate(e)
			if len(flags) != 1 || flags[0] != tt.want {
				t.Errorf("expected exactly [%s], got %v", tt.want, flags)
			}
		})
	}
}

func TestFilterBoundaryValues(t *testing.T) {
	f := NewFilter(DefaultThresholds())

	// Thresholds are strict: equal values do not trip.
	e := cleanEvent()
	e.LiquiditySOL = 5
	e.Holders = 10
	e.DevHoldPct = 50
	e.Top10HoldPct = 80

	if flags := f.Evaluate(e); len(flags) != 0 {
		t.Errorf("expected no flags at exact thresholds, got %v", flags)
	}
}

func TestFilterOrderedOutput(t *testing.T) {
	f := NewFilter(DefaultThresholds())

	// Trip everything and verify checklist order.
	e := &domain.RawEvent{
		Mint:           "BadMint",
		Name:           "Real Official v2",
		LiquiditySOL:   0.1,
		Holders:        1,
		DevHoldPct:     90,
		Top10HoldPct:   99,
		MintAuthority:  true,
		MetadataFrozen: true,
	}

	want := []domain.RiskFlag{
		domain.FlagLowLiquidity,
		domain.FlagLowHolderCount,
		domain.FlagDevConcentration,
		domain.FlagWhaleConcentration,
		domain.FlagNoSocials,
		domain.FlagMintAuthorityActive,
		domain.FlagFrozenMetadata,
		domain.FlagCopycatName,
	}

	got := f.Evaluate(e)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("flag order mismatch:\n got  %v\n want %v", got, want)
	}

	// Deterministic for identical input.
	again := f.Evaluate(e)
	if !reflect.DeepEqual(got, again) {
		t.Errorf("evaluation not deterministic: %v vs %v", got, again)
	}
}

func TestFilterSocialNotRequired(t *testing.T) {
	th := DefaultThresholds()
	th.SocialRequired = false
	f := NewFilter(th)

	e := cleanEvent()
	e.Twitter = ""
	if flags := f.Evaluate(e); len(flags) != 0 {
		t.Errorf("expected no flags with socials optional, got %v", flags)
	}
}

func TestFilterNilEvent(t *testing.T) {
	f := NewFilter(DefaultThresholds())

	flags := f.Evaluate(nil)
	if len(flags) != 1 || flags[0] != domain.FlagUnknown {
		t.Errorf("expected [unknown] for nil event, got %v", flags)
	}
}

func TestCriticalFlags(t *testing.T) {
	critical := []domain.RiskFlag{
		domain.FlagLowLiquidity,
		domain.FlagLowHolderCount,
		domain.FlagDevConcentration,
		domain.FlagWhaleConcentration,
		domain.FlagMintAuthorityActive,
	}
	for _, f := range critical {
		if !IsCritical(f) {
			t.Errorf("expected %s to be critical", f)
		}
	}

	cosmetic := []domain.RiskFlag{
		domain.FlagNoSocials,
		domain.FlagFrozenMetadata,
		domain.FlagCopycatName,
		domain.FlagUnknown,
	}
	for _, f := range cosmetic {
		if IsCritical(f) {
			t.Errorf("expected %s to not be critical", f)
		}
	}

	if !HasCritical([]domain.RiskFlag{domain.FlagNoSocials, domain.FlagLowLiquidity}) {
		t.Error("HasCritical missed a critical flag")
	}
	if HasCritical([]domain.RiskFlag{domain.FlagNoSocials}) {
		t.Error("HasCritical reported critical for cosmetic flags")
	}
	if HasCritical(nil) {
		t.Error("HasCritical reported critical for empty set")
	}
}
