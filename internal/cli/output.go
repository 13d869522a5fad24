package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/eshaffer321/finance-reconciler/internal/application/service"
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

// PrintHeader prints the application header
func PrintHeader(w io.Writer, flavors []matcher.Flavor, apply bool, transactionCount int) {
	mode := "DRY-RUN"
	if apply {
		mode = "APPLY"
	}
	names := make([]string, 0, len(flavors))
	for _, f := range flavors {
		names = append(names, string(f))
	}
	fmt.Fprintf(w, "reconcile: %s (%s mode)\n", strings.Join(names, ", "), mode)
	fmt.Fprintf(w, "Transactions: %d\n\n", transactionCount)
}

// PrintProfile prints the tolerance profile used for a flavor
func PrintProfile(w io.Writer, flavor matcher.Flavor, cfg matcher.Config) {
	fmt.Fprintf(w, "%s | Window: %d days | Tolerance: %.1f%%",
		flavor.Title(), cfg.MaxDaysDifference, cfg.TolerancePercentage*100)
	if cfg.AutoApplyConfidence > 0 {
		fmt.Fprintf(w, " | Auto-apply: %.2f", cfg.AutoApplyConfidence)
	}
	fmt.Fprintln(w)
}

// PrintCandidates prints proposed matches, best first
func PrintCandidates(w io.Writer, results []matcher.MatchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "  No matches proposed")
		return
	}
	for _, r := range results {
		c := r.Candidate
		fmt.Fprintf(w, "  %.2f  %s %s %s  <->  %s %s %s\n",
			c.Confidence,
			r.SourceTransaction.Date.Format("2006-01-02"), r.SourceTransaction.Amount.StringFixed(2), c.SourceID,
			r.TargetTransaction.Date.Format("2006-01-02"), r.TargetTransaction.Amount.StringFixed(2), c.TargetID,
		)
		fmt.Fprintf(w, "        %s\n", c.Reasoning)
	}
}

// PrintApplyResult prints the outcome of an apply run
func PrintApplyResult(w io.Writer, result *service.ApplyResult) {
	fmt.Fprintf(w, "  Applied=%d Skipped=%d Failed=%d\n",
		result.Count(service.OutcomeApplied),
		result.Count(service.OutcomeSkipped),
		result.Count(service.OutcomeFailed))

	var failed []service.PairResult
	for _, pr := range result.Results {
		if pr.Outcome == service.OutcomeFailed {
			failed = append(failed, pr)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w, "  Errors:")
		for _, pr := range failed {
			fmt.Fprintf(w, "    - %s <-> %s: %v\n", pr.Candidate.SourceID, pr.Candidate.TargetID, pr.Err)
		}
	}
}

// PrintSummary prints per-flavor counts
func PrintSummary(w io.Writer, summaries []service.FlavorSummary) {
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, s := range summaries {
		fmt.Fprintf(w, "%-14s Matched=%d Unmatched=%d\n", s.Flavor.Title(), s.Matched, s.Unmatched)
	}
}
