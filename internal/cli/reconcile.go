package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/eshaffer321/finance-reconciler/internal/application/service"
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

// FlavorRun is what one reconcile run did for one flavor
type FlavorRun struct {
	Flavor   matcher.Flavor
	Proposed []matcher.MatchResult
	Result   *service.ApplyResult // nil on a dry run
}

// RunReconcile scans every selected flavor and, with -apply, persists the
// proposals at or above -min-confidence. Flavors run in order over one
// snapshot, each seeing the previous flavor's writes.
func RunReconcile(ctx context.Context, app *App, flags ReconcileFlags, w io.Writer) ([]FlavorRun, error) {
	flavors, err := flags.Flavors()
	if err != nil {
		return nil, err
	}

	snapshot, err := app.Service.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	PrintHeader(w, flavors, flags.Apply, len(snapshot))

	runs := make([]FlavorRun, 0, len(flavors))
	for _, flavor := range flavors {
		if err := ctx.Err(); err != nil {
			return runs, err
		}

		cfg := flags.Profile(app.Service.Profile(flavor))
		PrintProfile(w, flavor, cfg)

		proposed, err := app.Service.FindMatches(flavor, snapshot, cfg)
		if err != nil {
			return runs, fmt.Errorf("%s: %w", flavor, err)
		}
		PrintCandidates(w, proposed)

		run := FlavorRun{Flavor: flavor, Proposed: proposed}
		if flags.Apply {
			var selected []matcher.MatchCandidate
			for _, r := range proposed {
				if r.Candidate.Confidence >= flags.MinConfidence {
					selected = append(selected, r.Candidate)
				}
			}

			result, err := app.Service.ApplyMatchesWithProfile(ctx, snapshot, selected, flavor, cfg)
			if err != nil {
				return runs, fmt.Errorf("%s: %w", flavor, err)
			}
			PrintApplyResult(w, result)
			snapshot = result.Transactions
			run.Result = result
		}
		fmt.Fprintln(w)
		runs = append(runs, run)
	}

	PrintSummary(w, app.Service.Summary(snapshot))
	return runs, nil
}
