package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the digest as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Tokenwatch Digest\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window: %s to %s\n\n",
		time.UnixMilli(r.WindowStart).UTC().Format(time.RFC3339),
		time.UnixMilli(r.WindowEnd).UTC().Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Top Tokens | %d |\n", r.Summary.TopTokenCount))
	sb.WriteString(fmt.Sprintf("| Pending Alerts | %d |\n", r.Summary.PendingAlertCount))
	sb.WriteString(fmt.Sprintf("| Gated Alerts | %d |\n", r.Summary.GatedAlertCount))
	sb.WriteString(fmt.Sprintf("| Dead Letters | %d |\n", r.Summary.DeadLetterCount))
	sb.WriteString(fmt.Sprintf("| Social Scans | %d |\n", r.Summary.ScanCount))
	sb.WriteString("\n")

	// Top tokens
	sb.WriteString("## Top Tokens\n\n")
	if len(r.TopTokens) == 0 {
		sb.WriteString("No scored tokens in the window.\n\n")
	} else {
		sb.WriteString("| # | Symbol | Score | Social | Liquidity (SOL) | Volume (SOL) | Holders | Flags | Mint |\n")
		sb.WriteString("|---|--------|-------|--------|-----------------|--------------|---------|-------|------|\n")
		for i, t := range r.TopTokens {
			flags := "-"
			if len(t.RiskFlags) > 0 {
				flags = strings.Join(t.RiskFlags, ", ")
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %.1f | %.1f | %.1f | %.1f | %d | %s | `%s` |\n",
				i+1, t.Symbol, t.Score, t.SocialScore, t.LiquiditySOL, t.VolumeSOL, t.Holders, flags, t.Mint))
		}
		sb.WriteString("\n")
	}

	// Pending alerts
	sb.WriteString("## Pending Alerts\n\n")
	if len(r.PendingAlerts) == 0 {
		sb.WriteString("No pending alerts.\n\n")
	} else {
		sb.WriteString("| Time | Type | Symbol | Score | Channel | Status | ID |\n")
		sb.WriteString("|------|------|--------|-------|---------|--------|----|\n")
		for _, a := range r.PendingAlerts {
			status := "undelivered"
			if a.Gated {
				status = "awaiting approval"
			} else if a.Approved {
				status = "approved, undelivered"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.1f | %s | %s | `%s` |\n",
				time.UnixMilli(a.Time).UTC().Format("01-02 15:04"), a.Type, a.Symbol, a.Score, a.Channel, status, a.ID))
		}
		sb.WriteString("\n")
	}

	// Dead letters
	sb.WriteString("## Dead Letters\n\n")
	if len(r.DeadLetters) == 0 {
		sb.WriteString("No dead letters. All units processed.\n\n")
	} else {
		sb.WriteString("| Time | Mint | Attempts | Last Error |\n")
		sb.WriteString("|------|------|----------|------------|\n")
		for _, d := range r.DeadLetters {
			sb.WriteString(fmt.Sprintf("| %s | `%s` | %d | %s |\n",
				time.UnixMilli(d.Time).UTC().Format("01-02 15:04"), d.Mint, d.Attempts, d.LastError))
		}
		sb.WriteString("\n")
	}

	// Scan activity
	sb.WriteString("## Social Scan Activity\n\n")
	if r.ScanActivity.ScanCount == 0 {
		sb.WriteString("No scans recorded in the window.\n")
	} else {
		sb.WriteString(fmt.Sprintf("Scans: %d | Signals found: %d | Platforms: %s\n\n",
			r.ScanActivity.ScanCount, r.ScanActivity.TotalResults, strings.Join(r.ScanActivity.Platforms, ", ")))
		sb.WriteString(fmt.Sprintf("Last scan: %s\n",
			time.UnixMilli(r.ScanActivity.LastScanAt).UTC().Format(time.RFC3339)))
	}

	return sb.String()
}
