package handlers

import (
	"time"

	"github.com/eshaffer321/finance-reconciler/internal/api/dto"
	"github.com/eshaffer321/finance-reconciler/internal/application/service"
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

// toTransactionResponse converts a domain transaction to an API response.
func toTransactionResponse(tx matcher.Transaction) dto.TransactionResponse {
	response := dto.TransactionResponse{
		ID:               tx.ID,
		Date:             tx.Date.Format("2006-01-02"),
		Amount:           tx.Amount.StringFixed(2),
		OriginalCurrency: tx.OriginalCurrency,
		Account:          tx.Account,
		Description:      tx.Description,
		Category:         tx.Category,
		Type:             tx.Type,
	}

	for _, flavor := range matcher.AllFlavors {
		ref := tx.Reconciliation.Ref(flavor)
		if ref == nil {
			continue
		}
		if response.Matches == nil {
			response.Matches = make(map[string]dto.MatchRefResponse)
		}
		response.Matches[string(flavor)] = dto.MatchRefResponse{
			MatchID:       ref.MatchID,
			CounterpartID: ref.CounterpartID,
		}
	}

	return response
}

func toVersionResponse(v storage.TransactionVersion) dto.VersionResponse {
	return dto.VersionResponse{
		Version:       v.Version,
		Flavor:        string(v.Flavor),
		MatchID:       v.MatchID,
		CounterpartID: v.CounterpartID,
		Note:          v.Note,
		CreatedAt:     v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCandidateResponse(r matcher.MatchResult) dto.CandidateResponse {
	c := r.Candidate
	response := dto.CandidateResponse{
		SourceID:             c.SourceID,
		TargetID:             c.TargetID,
		Flavor:               string(c.Flavor),
		Confidence:           c.Confidence,
		DateDifferenceDays:   c.DateDifferenceDays,
		AmountDifference:     c.AmountDifference.StringFixed(2),
		PercentageDifference: c.PercentageDifference,
		Reasoning:            c.Reasoning,
		Source:               toTransactionResponse(r.SourceTransaction),
		Target:               toTransactionResponse(r.TargetTransaction),
	}
	if !c.ConversionRate.IsZero() {
		response.ConversionRate = c.ConversionRate.String()
	}
	return response
}

func toProfileResponse(cfg matcher.Config) dto.ProfileResponse {
	return dto.ProfileResponse{
		MaxDaysDifference:   cfg.MaxDaysDifference,
		TolerancePercentage: cfg.TolerancePercentage,
		DateWeight:          cfg.DateWeight,
		AmountWeight:        cfg.AmountWeight,
		AutoApplyConfidence: cfg.AutoApplyConfidence,
	}
}

func toApplyResponse(flavor matcher.Flavor, result *service.ApplyResult) dto.ApplyResponse {
	response := dto.ApplyResponse{
		Flavor:  string(flavor),
		Applied: result.Count(service.OutcomeApplied),
		Skipped: result.Count(service.OutcomeSkipped),
		Failed:  result.Count(service.OutcomeFailed),
		Results: make([]dto.PairResultResponse, 0, len(result.Results)),
	}

	for _, pr := range result.Results {
		item := dto.PairResultResponse{
			SourceID: pr.Candidate.SourceID,
			TargetID: pr.Candidate.TargetID,
			Outcome:  string(pr.Outcome),
		}
		if pr.Match != nil {
			item.MatchID = pr.Match.ID
		}
		if pr.Err != nil {
			item.Error = pr.Err.Error()
		}
		response.Results = append(response.Results, item)
	}

	return response
}

func toMatchResponse(m *matcher.Match) dto.MatchResponse {
	return dto.MatchResponse{
		ID:         m.ID,
		Flavor:     string(m.Flavor),
		SourceID:   m.SourceID,
		TargetID:   m.TargetID,
		Confidence: m.Confidence,
		Reasoning:  m.Reasoning,
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
