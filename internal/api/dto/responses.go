package dto

import "time"

// Health check statuses
const (
	HealthStatusOK          = "ok"
	HealthStatusDegraded    = "degraded"
	HealthStatusUnavailable = "unavailable"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Storage   string `json:"storage"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// MatchRefResponse is a transaction's back-reference to a match.
type MatchRefResponse struct {
	MatchID       string `json:"match_id"`
	CounterpartID string `json:"counterpart_id"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID               string                      `json:"id"`
	Date             string                      `json:"date"`
	Amount           string                      `json:"amount"`
	OriginalCurrency string                      `json:"original_currency,omitempty"`
	Account          string                      `json:"account"`
	Description      string                      `json:"description"`
	Category         string                      `json:"category,omitempty"`
	Type             string                      `json:"type,omitempty"`
	Matches          map[string]MatchRefResponse `json:"matches,omitempty"` // Keyed by flavor
}

// TransactionListResponse is returned when listing transactions.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int                   `json:"total_count"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// VersionResponse is one entry of a transaction's history.
type VersionResponse struct {
	Version       int    `json:"version"`
	Flavor        string `json:"flavor,omitempty"`
	MatchID       string `json:"match_id,omitempty"`
	CounterpartID string `json:"counterpart_id,omitempty"`
	Note          string `json:"note"`
	CreatedAt     string `json:"created_at"`
}

// HistoryResponse is returned by the transaction history endpoint.
type HistoryResponse struct {
	TransactionID string            `json:"transaction_id"`
	Versions      []VersionResponse `json:"versions"`
}

// CandidateResponse is a proposed match with both transactions.
type CandidateResponse struct {
	SourceID             string              `json:"source_id"`
	TargetID             string              `json:"target_id"`
	Flavor               string              `json:"flavor"`
	Confidence           float64             `json:"confidence"`
	DateDifferenceDays   int                 `json:"date_difference_days"`
	AmountDifference     string              `json:"amount_difference"`
	PercentageDifference float64             `json:"percentage_difference"`
	ConversionRate       string              `json:"conversion_rate,omitempty"`
	Reasoning            string              `json:"reasoning"`
	Source               TransactionResponse `json:"source"`
	Target               TransactionResponse `json:"target"`
}

// ProfileResponse is the tolerance profile used for a scan.
type ProfileResponse struct {
	MaxDaysDifference   int     `json:"max_days_difference"`
	TolerancePercentage float64 `json:"tolerance_percentage"`
	DateWeight          float64 `json:"date_weight"`
	AmountWeight        float64 `json:"amount_weight"`
	AutoApplyConfidence float64 `json:"auto_apply_confidence"`
}

// CandidateListResponse is returned by the candidates endpoint.
type CandidateListResponse struct {
	Flavor     string              `json:"flavor"`
	Profile    ProfileResponse     `json:"profile"`
	Candidates []CandidateResponse `json:"candidates"`
	TotalCount int                 `json:"total_count"`
}

// PairResultResponse is the outcome of applying one candidate.
type PairResultResponse struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Outcome  string `json:"outcome"`
	MatchID  string `json:"match_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ApplyResponse is returned by the apply and auto endpoints.
type ApplyResponse struct {
	Flavor  string               `json:"flavor"`
	Applied int                  `json:"applied"`
	Skipped int                  `json:"skipped"`
	Failed  int                  `json:"failed"`
	Results []PairResultResponse `json:"results"`
}

// MatchResponse represents a persisted match.
type MatchResponse struct {
	ID         string  `json:"id"`
	Flavor     string  `json:"flavor"`
	SourceID   string  `json:"source_id"`
	TargetID   string  `json:"target_id"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// MatchListResponse is returned when listing matches.
type MatchListResponse struct {
	Matches    []MatchResponse `json:"matches"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
}

// FlavorSummaryResponse holds the counts for one flavor.
type FlavorSummaryResponse struct {
	Flavor        string `json:"flavor"`
	Participating int    `json:"participating"`
	Matched       int    `json:"matched"`
	Unmatched     int    `json:"unmatched"`
}

// SummaryResponse is returned by the reconciliation summary endpoint.
type SummaryResponse struct {
	TotalTransactions int                     `json:"total_transactions"`
	Flavors           []FlavorSummaryResponse `json:"flavors"`
}

// NewHealthResponse builds the health payload from the result of a
// storage ping. A failed ping degrades the service.
func NewHealthResponse(storageErr error) HealthResponse {
	response := HealthResponse{
		Status:    HealthStatusOK,
		Storage:   HealthStatusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if storageErr != nil {
		response.Status = HealthStatusDegraded
		response.Storage = HealthStatusUnavailable
		response.Error = storageErr.Error()
	}
	return response
}
