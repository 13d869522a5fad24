package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/finance-reconciler/internal/api/dto"
	"github.com/eshaffer321/finance-reconciler/internal/application/service"
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

// maxApplyBody caps the apply request body
const maxApplyBody = 1 << 20

// ReconcileHandler handles candidate scans and match application.
type ReconcileHandler struct {
	*Base
	svc *service.ReconciliationService
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(repo storage.Repository, svc *service.ReconciliationService) *ReconcileHandler {
	return &ReconcileHandler{
		Base: NewBase(repo),
		svc:  svc,
	}
}

// Summary handles GET /api/reconcile/summary.
func (h *ReconcileHandler) Summary(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	summaries := h.svc.Summary(transactions)
	response := dto.SummaryResponse{
		TotalTransactions: len(transactions),
		Flavors:           make([]dto.FlavorSummaryResponse, 0, len(summaries)),
	}
	for _, s := range summaries {
		response.Flavors = append(response.Flavors, dto.FlavorSummaryResponse{
			Flavor:        string(s.Flavor),
			Participating: s.Participating,
			Matched:       s.Matched,
			Unmatched:     s.Unmatched,
		})
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Candidates handles GET /api/reconcile/{flavor}/candidates.
// max_days and tolerance override the configured profile for this scan only.
func (h *ReconcileHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	flavor, ok := h.flavorParam(w, r)
	if !ok {
		return
	}

	cfg, ok := h.profileParams(w, r, flavor)
	if !ok {
		return
	}

	transactions, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	results, err := h.svc.FindMatches(flavor, transactions, cfg)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	response := dto.CandidateListResponse{
		Flavor:     string(flavor),
		Profile:    toProfileResponse(cfg),
		Candidates: make([]dto.CandidateResponse, 0, len(results)),
		TotalCount: len(results),
	}
	for _, result := range results {
		response.Candidates = append(response.Candidates, toCandidateResponse(result))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Apply handles POST /api/reconcile/{flavor}/apply.
// Pairs are scored again under the profile, with the same max_days and
// tolerance overrides as Candidates. Per-pair failures are reported in the
// body; the request itself succeeds.
func (h *ReconcileHandler) Apply(w http.ResponseWriter, r *http.Request) {
	flavor, ok := h.flavorParam(w, r)
	if !ok {
		return
	}
	cfg, ok := h.profileParams(w, r, flavor)
	if !ok {
		return
	}

	var req dto.ApplyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxApplyBody)).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if len(req.Candidates) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("at least one candidate is required"))
		return
	}
	for i := range req.Candidates {
		c := &req.Candidates[i]
		if c.Flavor == "" {
			c.Flavor = flavor
		}
		if c.Flavor != flavor {
			h.WriteError(w, http.StatusBadRequest, dto.ValidationError(
				fmt.Sprintf("candidate %d is a %s match, not %s", i, c.Flavor, flavor)))
			return
		}
		if c.SourceID == "" || c.TargetID == "" {
			h.WriteError(w, http.StatusBadRequest, dto.ValidationError(
				fmt.Sprintf("candidate %d needs source_id and target_id", i)))
			return
		}
	}

	transactions, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	result, err := h.svc.ApplyMatchesWithProfile(r.Context(), transactions, req.Candidates, flavor, cfg)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toApplyResponse(flavor, result))
}

// Auto handles POST /api/reconcile/{flavor}/auto.
func (h *ReconcileHandler) Auto(w http.ResponseWriter, r *http.Request) {
	flavor, ok := h.flavorParam(w, r)
	if !ok {
		return
	}

	transactions, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	result, err := h.svc.AutoReconcile(r.Context(), flavor, transactions)
	if err != nil {
		h.WriteDomainError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toApplyResponse(flavor, result))
}

func (h *ReconcileHandler) flavorParam(w http.ResponseWriter, r *http.Request) (matcher.Flavor, bool) {
	flavor, err := matcher.ParseFlavor(chi.URLParam(r, "flavor"))
	if err != nil {
		h.WriteDomainError(w, err)
		return "", false
	}
	return flavor, true
}

// profileParams returns the flavor's profile with the max_days and
// tolerance query overrides applied
func (h *ReconcileHandler) profileParams(w http.ResponseWriter, r *http.Request, flavor matcher.Flavor) (matcher.Config, bool) {
	cfg := h.svc.Profile(flavor)
	cfg.MaxDaysDifference = ParseIntParam(r, "max_days", cfg.MaxDaysDifference)
	cfg.TolerancePercentage = ParseFloatParam(r, "tolerance", cfg.TolerancePercentage)
	if err := cfg.Validate(); err != nil {
		h.WriteDomainError(w, err)
		return cfg, false
	}
	return cfg, true
}
