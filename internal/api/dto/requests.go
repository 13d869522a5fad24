package dto

import (
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

// TransactionListParams represents query parameters for listing transactions.
type TransactionListParams struct {
	Flavor string `json:"flavor"`
	State  string `json:"state"` // "matched", "unmatched" or empty for all
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// MatchListParams represents query parameters for listing matches.
type MatchListParams struct {
	Flavor        string `json:"flavor"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Limit         int    `json:"limit"`
}

// DefaultTransactionListParams returns default values for transaction list params.
func DefaultTransactionListParams() TransactionListParams {
	return TransactionListParams{
		Limit: 100,
	}
}

// DefaultMatchListParams returns default values for match list params.
func DefaultMatchListParams() MatchListParams {
	return MatchListParams{
		Limit: 50,
	}
}

// ApplyRequest is the body of POST /api/reconcile/{flavor}/apply.
// Candidates are usually taken verbatim from the candidates endpoint.
type ApplyRequest struct {
	Candidates []matcher.MatchCandidate `json:"candidates"`
}
