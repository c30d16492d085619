package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/propscope/oddsjobs/internal/domain"
)

// FormatArbs renders up to limit opportunities as one alert. opps is expected
// in display order (highest profit first).
func FormatArbs(opps []domain.ArbOpportunity, limit int) (title, message string) {
	title = fmt.Sprintf("%d arbitrage opportunit%s", len(opps), plural(len(opps), "y", "ies"))

	shown := opps
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	var b strings.Builder
	for i, opp := range shown {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s | %s | %s %s | profit %.2f%%\n",
			strings.ToUpper(opp.Sport), opp.Description, opp.Market, opp.Line, opp.ProfitPct)
		writeLeg(&b, opp.Over)
		b.WriteByte('\n')
		writeLeg(&b, opp.Under)
	}
	if rest := len(opps) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n\n... and %d more", rest)
	}
	return title, b.String()
}

func writeLeg(b *strings.Builder, leg domain.ArbLeg) {
	label := leg.Label
	if label == "" {
		label = string(leg.Side)
	}
	fmt.Fprintf(b, "  %s %s @ %s (stake %.1f%%)", label, FormatAmerican(leg.Odds), leg.Book, leg.StakePct)
}

// FormatJobFailure renders a failed run.
func FormatJobFailure(s domain.BatchSummary, runErr error) (title, message string) {
	title = fmt.Sprintf("job %s failed", s.Job)

	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", s.RunID)
	if runErr != nil {
		fmt.Fprintf(&b, "error: %v\n", runErr)
	}
	writeCounts(&b, s)
	return title, b.String()
}

// FormatJobSummary renders a finished run.
func FormatJobSummary(s domain.BatchSummary) (title, message string) {
	title = fmt.Sprintf("job %s finished in %s", s.Job, s.Finished.Sub(s.Started).Round(time.Second))

	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", s.RunID)
	writeCounts(&b, s)
	return title, b.String()
}

func writeCounts(b *strings.Builder, s domain.BatchSummary) {
	fmt.Fprintf(b, "ok %d, skipped %d, failed %d, written %d",
		s.Succeeded, s.TotalSkipped(), s.TotalFailed(), s.Written)
	for _, r := range s.Reasons() {
		fmt.Fprintf(b, "\n  %s: %d", r, s.Skipped[r]+s.Failed[r])
	}
}

// FormatAmerican renders American odds with an explicit sign for positive
// prices.
func FormatAmerican(odds int) string {
	if odds > 0 {
		return fmt.Sprintf("+%d", odds)
	}
	return fmt.Sprintf("%d", odds)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
