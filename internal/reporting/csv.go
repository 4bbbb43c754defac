package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the top-token table as a CSV string.
func RenderCSV(tokens []TokenRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("mint,symbol,score,social_score,liquidity_sol,volume_sol,holders,risk_flags,scored_at\n")

	// Rows
	for _, t := range tokens {
		sb.WriteString(fmt.Sprintf("%s,%s,%.2f,%.2f,%.4f,%.4f,%d,%s,%d\n",
			t.Mint,
			t.Symbol,
			t.Score,
			t.SocialScore,
			t.LiquiditySOL,
			t.VolumeSOL,
			t.Holders,
			strings.Join(t.RiskFlags, ";"),
			t.ScoredAt,
		))
	}

	return sb.String()
}
