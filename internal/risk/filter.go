package risk

import (
	"strings"

	"tokenwatch/internal/domain"
)

// Thresholds configure the rug indicator checklist.
type Thresholds struct {
	MinLiquiditySOL float64  // below this flags low_liquidity
	MinHolders      int      // below this flags low_holder_count
	MaxDevHoldPct   float64  // dev holding above this flags dev_concentration
	MaxTop10HoldPct float64  // top-10 holding above this flags whale_concentration
	SocialRequired  bool     // flags no_socials when no links are present
	CopycatPatterns []string // lowercase substrings that flag copycat_name
}

// DefaultThresholds returns the production checklist configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinLiquiditySOL: 5,
		MinHolders:      10,
		MaxDevHoldPct:   50,
		MaxTop10HoldPct: 80,
		SocialRequired:  true,
		CopycatPatterns: []string{"official", "2.0", "v2", "real", "new", "legit"},
	}
}

// criticalFlags force the composite score below the configured ceiling.
// Structural rug indicators only; cosmetic flags (no_socials, copycat_name,
// frozen_metadata) penalize the score but do not cap it.
var criticalFlags = map[domain.RiskFlag]bool{
	domain.FlagLowLiquidity:        true,
	domain.FlagLowHolderCount:      true,
	domain.FlagDevConcentration:    true,
	domain.FlagWhaleConcentration:  true,
	domain.FlagMintAuthorityActive: true,
}

// IsCritical reports whether a flag belongs to the critical subset.
func IsCritical(f domain.RiskFlag) bool {
	return criticalFlags[f]
}

// HasCritical reports whether any flag in the set is critical.
func HasCritical(flags []domain.RiskFlag) bool {
	for _, f := range flags {
		if IsCritical(f) {
			return true
		}
	}
	return false
}

// Filter evaluates the ordered rug indicator checklist against raw events.
type Filter struct {
	thresholds Thresholds
}

// NewFilter creates a Filter with the given thresholds.
func NewFilter(t Thresholds) *Filter {
	return &Filter{thresholds: t}
}

type check struct {
	flag domain.RiskFlag
	fn   func(Thresholds, *domain.RawEvent) bool
}

// checklist runs in a fixed order so the returned flag set is deterministic.
var checklist = []check{
	{domain.FlagLowLiquidity, func(t Thresholds, e *domain.RawEvent) bool {
		return e.LiquiditySOL < t.MinLiquiditySOL
	}},
	{domain.FlagLowHolderCount, func(t Thresholds, e *domain.RawEvent) bool {
		return e.Holders < int64(t.MinHolders)
	}},
	{domain.FlagDevConcentration, func(t Thresholds, e *domain.RawEvent) bool {
		return e.DevHoldPct > t.MaxDevHoldPct
	}},
	{domain.FlagWhaleConcentration, func(t Thresholds, e *domain.RawEvent) bool {
		return e.Top10HoldPct > t.MaxTop10HoldPct
	}},
	{domain.FlagNoSocials, func(t Thresholds, e *domain.RawEvent) bool {
		return t.SocialRequired && !e.HasSocials()
	}},
	{domain.FlagMintAuthorityActive, func(t Thresholds, e *domain.RawEvent) bool {
		return e.MintAuthority
	}},
	{domain.FlagFrozenMetadata, func(t Thresholds, e *domain.RawEvent) bool {
		return e.MetadataFrozen
	}},
	{domain.FlagCopycatName, func(t Thresholds, e *domain.RawEvent) bool {
		name := strings.ToLower(e.Name)
		for _, p := range t.CopycatPatterns {
			if p != "" && strings.Contains(name, p) {
				return true
			}
		}
		return false
	}},
}

// Evaluate runs every check against the event and returns the flags that
// tripped, in checklist order. A check that panics is recorded as an
// "unknown" flag instead of aborting the remaining checks.
func (f *Filter) Evaluate(e *domain.RawEvent) []domain.RiskFlag {
	if e == nil {
		return []domain.RiskFlag{domain.FlagUnknown}
	}

	var flags []domain.RiskFlag
	unknown := false
	for _, c := range checklist {
		tripped, ok := runCheck(c, f.thresholds, e)
		if !ok {
			unknown = true
			continue
		}
		if tripped {
			flags = append(flags, c.flag)
		}
	}
	if unknown {
		flags = append(flags, domain.FlagUnknown)
	}
	return flags
}

// runCheck isolates a single check so one failure cannot take the others down.
func runCheck(c check, t Thresholds, e *domain.RawEvent) (tripped, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			tripped, ok = false, false
		}
	}()
	return c.fn(t, e), true
}
