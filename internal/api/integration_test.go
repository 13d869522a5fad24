package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/finance-reconciler/internal/api"
	"github.com/eshaffer321/finance-reconciler/internal/api/dto"
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

// =============================================================================
// API Integration Tests
// =============================================================================
// These tests run the full stack against a real SQLite database:
// HTTP request → Router → Handlers → Service → Storage → SQLite

func createTestServer(t *testing.T) (*httptest.Server, *storage.Storage) {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "api_integration.db"))
	require.NoError(t, err)

	server := api.NewServer(api.DefaultConfig(), store, nil, quietLogger())
	ts := httptest.NewServer(server.Router())

	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})
	return ts, store
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestAPI_Integration_HealthCheck(t *testing.T) {
	ts, _ := createTestServer(t)

	var response dto.HealthResponse
	status := getJSON(t, ts.URL+"/health", &response)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, dto.HealthStatusOK, response.Status)
	assert.Equal(t, dto.HealthStatusOK, response.Storage)
}

func TestAPI_Integration_HealthCheck_ClosedDatabase(t *testing.T) {
	ts, store := createTestServer(t)
	require.NoError(t, store.Close())

	var response dto.HealthResponse
	status := getJSON(t, ts.URL+"/health", &response)

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, dto.HealthStatusDegraded, response.Status)
	assert.Equal(t, dto.HealthStatusUnavailable, response.Storage)
}

func TestAPI_Integration_ReimbursementRoundTrip(t *testing.T) {
	ts, store := createTestServer(t)
	require.NoError(t, store.SaveTransactions(context.Background(), []matcher.Transaction{
		testTx("exp", "checking", "-100.00", 10),
		testTx("reimb", "checking", "98.50", 15),
	}))

	// Scan
	var candidates dto.CandidateListResponse
	status := getJSON(t, ts.URL+"/api/reconcile/reimbursement/candidates", &candidates)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, candidates.Candidates, 1)
	c := candidates.Candidates[0]

	// Apply the proposed pair
	body, err := json.Marshal(dto.ApplyRequest{Candidates: []matcher.MatchCandidate{{
		SourceID:   c.SourceID,
		TargetID:   c.TargetID,
		Confidence: c.Confidence,
		Reasoning:  c.Reasoning,
	}}})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/reconcile/reimbursement/apply", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var applied dto.ApplyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&applied))
	require.Equal(t, 1, applied.Applied)
	matchID := applied.Results[0].MatchID

	// Both sides now reference the match
	var list dto.TransactionListResponse
	status = getJSON(t, ts.URL+"/api/transactions?flavor=reimbursement&state=matched", &list)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list.Transactions, 2)
	assert.Equal(t, matchID, list.Transactions[0].Matches["reimbursement"].MatchID)
	assert.Equal(t, "reimb", list.Transactions[0].Matches["reimbursement"].CounterpartID)

	// A rescan proposes nothing
	status = getJSON(t, ts.URL+"/api/reconcile/reimbursement/candidates", &candidates)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, candidates.Candidates)

	// Unmatch
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/matches/"+matchID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	var history dto.HistoryResponse
	status = getJSON(t, ts.URL+"/api/transactions/exp/history", &history)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, history.Versions)
	last := history.Versions[len(history.Versions)-1]
	assert.Equal(t, "Reimbursement match removed", last.Note)
	assert.Empty(t, last.MatchID)

	var summary dto.SummaryResponse
	status = getJSON(t, ts.URL+"/api/reconcile/summary", &summary)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, summary.Flavors[0].Unmatched)
	assert.Equal(t, 0, summary.Flavors[0].Matched)
}
