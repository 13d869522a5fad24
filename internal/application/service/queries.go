package service

import (
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

// FlavorSummary counts the transactions taking part in one flavor
type FlavorSummary struct {
	Flavor        matcher.Flavor `json:"flavor"`
	Participating int            `json:"participating"`
	Matched       int            `json:"matched"`
	Unmatched     int            `json:"unmatched"`
}

// GetUnmatched returns the transactions that participate in the flavor and
// are not yet matched for it. Unknown flavors yield nothing.
func (s *ReconciliationService) GetUnmatched(transactions []matcher.Transaction, flavor matcher.Flavor) []matcher.Transaction {
	return filterByState(transactions, flavor, matcher.StateUnmatched)
}

// CountUnmatched returns len(GetUnmatched(transactions, flavor))
func (s *ReconciliationService) CountUnmatched(transactions []matcher.Transaction, flavor matcher.Flavor) int {
	return len(s.GetUnmatched(transactions, flavor))
}

// GetMatched returns the transactions currently matched for the flavor
func (s *ReconciliationService) GetMatched(transactions []matcher.Transaction, flavor matcher.Flavor) []matcher.Transaction {
	return filterByState(transactions, flavor, matcher.StateMatched)
}

// Summary returns per-flavor counts in matcher.AllFlavors order
func (s *ReconciliationService) Summary(transactions []matcher.Transaction) []FlavorSummary {
	summaries := make([]FlavorSummary, 0, len(matcher.AllFlavors))
	for _, flavor := range matcher.AllFlavors {
		matched := len(s.GetMatched(transactions, flavor))
		unmatched := s.CountUnmatched(transactions, flavor)
		summaries = append(summaries, FlavorSummary{
			Flavor:        flavor,
			Participating: matched + unmatched,
			Matched:       matched,
			Unmatched:     unmatched,
		})
	}
	return summaries
}

func filterByState(transactions []matcher.Transaction, flavor matcher.Flavor, state matcher.ReconciliationState) []matcher.Transaction {
	strategy, err := matcher.StrategyFor(flavor)
	if err != nil {
		return nil
	}

	var result []matcher.Transaction
	for _, tx := range transactions {
		// A matched transaction always participates, even if it was
		// recategorized after matching
		if tx.State(flavor) != state {
			continue
		}
		if state == matcher.StateUnmatched && !strategy.Participates(tx) {
			continue
		}
		result = append(result, tx)
	}
	return result
}
