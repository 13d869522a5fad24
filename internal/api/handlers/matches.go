package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/finance-reconciler/internal/api/dto"
	"github.com/eshaffer321/finance-reconciler/internal/application/service"
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

// MatchesHandler handles match ledger requests.
type MatchesHandler struct {
	*Base
	svc *service.ReconciliationService
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(repo storage.Repository, svc *service.ReconciliationService) *MatchesHandler {
	return &MatchesHandler{
		Base: NewBase(repo),
		svc:  svc,
	}
}

// List handles GET /api/matches - newest first.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	params := dto.DefaultMatchListParams()
	params.Flavor = r.URL.Query().Get("flavor")
	params.Status = r.URL.Query().Get("status")
	params.TransactionID = r.URL.Query().Get("transaction_id")
	params.Limit = ParseIntParam(r, "limit", params.Limit)

	filters := matcher.MatchFilters{
		TransactionID: params.TransactionID,
		Limit:         params.Limit,
	}
	if params.Flavor != "" {
		flavor, err := matcher.ParseFlavor(params.Flavor)
		if err != nil {
			h.WriteDomainError(w, err)
			return
		}
		filters.Flavor = flavor
	}
	switch status := matcher.MatchStatus(params.Status); status {
	case "", matcher.MatchStatusApplied, matcher.MatchStatusUnmatched:
		filters.Status = status
	default:
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("status must be applied or unmatched"))
		return
	}

	matches, err := h.repo.ListMatches(r.Context(), filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.MatchListResponse{
		Matches:    make([]dto.MatchResponse, 0, len(matches)),
		TotalCount: len(matches),
		Limit:      params.Limit,
	}
	for _, m := range matches {
		response.Matches = append(response.Matches, toMatchResponse(m))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/matches/{id}.
func (h *MatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	match, ok := h.loadMatch(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, toMatchResponse(match))
}

// Unmatch handles DELETE /api/matches/{id}. The match record is kept with
// status unmatched; unmatching twice returns the same record.
func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	match, ok := h.loadMatch(w, r)
	if !ok {
		return
	}

	transactions, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if _, err := h.svc.Unmatch(r.Context(), transactions, match.ID); err != nil {
		h.WriteDomainError(w, err)
		return
	}

	updated, err := h.repo.GetMatch(r.Context(), match.ID)
	if err != nil || updated == nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, toMatchResponse(updated))
}

func (h *MatchesHandler) loadMatch(w http.ResponseWriter, r *http.Request) (*matcher.Match, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("match ID is required"))
		return nil, false
	}

	match, err := h.repo.GetMatch(r.Context(), id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return nil, false
	}
	if match == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("match"))
		return nil, false
	}
	return match, true
}
