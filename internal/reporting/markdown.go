package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a run report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Started: %s | Completed: %s\n\n",
		r.StartedAt.Format(time.RFC3339), r.CompletedAt.Format(time.RFC3339)))
	if r.Partial {
		sb.WriteString("**Partial run**: cancelled before all bars were processed.\n\n")
	}

	// Strategy summary
	sb.WriteString("## Strategy Results\n\n")
	if len(r.Strategies) > 0 {
		sb.WriteString("| Strategy | PnL | ROI% | WinRate% | Trades | Wins | Losses | MaxDD% | Fees |\n")
		sb.WriteString("|----------|-----|------|----------|--------|------|--------|--------|------|\n")
		for _, s := range r.Strategies {
			if s.Failed {
				sb.WriteString(fmt.Sprintf("| %s | FAILED | - | - | - | - | - | - | - |\n", s.Name))
				continue
			}
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %d | %d | %d | %.2f | %.2f |\n",
				s.Name, s.TotalPnL, s.ROI, s.WinRate,
				s.TotalTrades, s.WinningTrades, s.LosingTrades,
				s.MaxDrawdown, s.TotalFees))
		}
	} else {
		sb.WriteString("No strategy results available.\n")
	}
	sb.WriteString("\n")

	// Failures
	var failed []StrategyRow
	for _, s := range r.Strategies {
		if s.Failed {
			failed = append(failed, s)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("## Failures\n\n")
		for _, s := range failed {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", s.Name, s.Error))
		}
		sb.WriteString("\n")
	}

	// Degraded signals
	var degraded []StrategyRow
	for _, s := range r.Strategies {
		if s.DegradedSignals > 0 {
			degraded = append(degraded, s)
		}
	}
	if len(degraded) > 0 {
		sb.WriteString("## Degraded Signals\n\n")
		sb.WriteString("Entry signals skipped for lack of simulated capital:\n\n")
		for _, s := range degraded {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", s.Name, s.DegradedSignals))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
