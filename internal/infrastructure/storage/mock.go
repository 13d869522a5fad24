package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
// Annotation updates follow the same conflict rules as Storage.
type MockRepository struct {
	mu           sync.Mutex
	transactions map[string]*matcher.Transaction
	versions     map[string][]TransactionVersion
	matches      map[string]*matcher.Match

	// Hooks for test assertions
	UpdateTransactionCalls int
	LastUpdate             *TransactionUpdate
	LastNote               string
	SaveMatchCalled        bool
	LastSavedMatch         *matcher.Match

	// Error injection for testing error paths
	GetAllTransactionsErr error
	UpdateTransactionErr  error
	FailUpdateFor         map[string]error // Keyed by transaction ID
	SaveMatchErr          error
	GetMatchErr           error
	UpdateMatchStatusErr  error
	PingErr               error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		transactions:  make(map[string]*matcher.Transaction),
		versions:      make(map[string][]TransactionVersion),
		matches:       make(map[string]*matcher.Match),
		FailUpdateFor: make(map[string]error),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Ping returns PingErr
func (m *MockRepository) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// GetAllTransactions returns copies of every transaction ordered by date, then ID
func (m *MockRepository) GetAllTransactions(ctx context.Context) ([]matcher.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetAllTransactionsErr != nil {
		return nil, m.GetAllTransactionsErr
	}

	result := make([]matcher.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		result = append(result, *tx)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateTransaction applies one annotation update to the in-memory copy
func (m *MockRepository) UpdateTransaction(ctx context.Context, update TransactionUpdate, note string) (*matcher.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateTransactionCalls++
	m.LastUpdate = &update
	m.LastNote = note
	if m.UpdateTransactionErr != nil {
		return nil, m.UpdateTransactionErr
	}

	return m.applyUpdate(update, note)
}

// BatchUpdateTransactions validates every update before applying any of them
func (m *MockRepository) BatchUpdateTransactions(ctx context.Context, updates []TransactionUpdate, note string) ([]matcher.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateTransactionErr != nil {
		return nil, m.UpdateTransactionErr
	}

	// Validate against a scratch copy so a late failure leaves nothing applied
	scratch := make(map[string]matcher.Reconciliation, len(updates))
	for _, update := range updates {
		tx, ok := m.transactions[update.ID]
		if !ok {
			return nil, fmt.Errorf("transaction %s: %w", update.ID, ErrNotFound)
		}
		if err := m.FailUpdateFor[update.ID]; err != nil {
			return nil, err
		}
		current, seen := scratch[update.ID]
		if !seen {
			current = tx.Reconciliation
		}
		if _, err := checkAnnotation(current.Ref(update.Flavor), update); err != nil {
			return nil, err
		}
		scratch[update.ID] = current.WithRef(update.Flavor, update.Ref)
	}

	updated := make([]matcher.Transaction, 0, len(updates))
	for _, update := range updates {
		tx, err := m.applyUpdate(update, note)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *tx)
	}
	return updated, nil
}

func (m *MockRepository) applyUpdate(update TransactionUpdate, note string) (*matcher.Transaction, error) {
	if err := m.FailUpdateFor[update.ID]; err != nil {
		return nil, err
	}

	tx, ok := m.transactions[update.ID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", update.ID, ErrNotFound)
	}

	changed, err := checkAnnotation(tx.Reconciliation.Ref(update.Flavor), update)
	if err != nil {
		return nil, err
	}

	if changed {
		tx.Reconciliation = tx.Reconciliation.WithRef(update.Flavor, update.Ref)

		version := TransactionVersion{
			TransactionID: update.ID,
			Version:       len(m.versions[update.ID]) + 2, // version 1 is the initial save
			Flavor:        update.Flavor,
			Note:          note,
			CreatedAt:     time.Now(),
		}
		if update.Ref != nil {
			version.MatchID = update.Ref.MatchID
			version.CounterpartID = update.Ref.CounterpartID
		}
		m.versions[update.ID] = append(m.versions[update.ID], version)
	}

	copied := *tx
	return &copied, nil
}

// SaveTransactions stores copies of the given transactions
func (m *MockRepository) SaveTransactions(ctx context.Context, transactions []matcher.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range transactions {
		copied := transactions[i]
		m.transactions[copied.ID] = &copied
	}
	return nil
}

// GetHistory returns recorded versions oldest first
func (m *MockRepository) GetHistory(ctx context.Context, transactionID string) ([]TransactionVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.versions[transactionID]
	result := make([]TransactionVersion, len(versions))
	copy(result, versions)
	return result, nil
}

// SaveMatch stores a copy of the match
func (m *MockRepository) SaveMatch(ctx context.Context, match *matcher.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveMatchCalled = true
	m.LastSavedMatch = match
	if m.SaveMatchErr != nil {
		return m.SaveMatchErr
	}

	copied := *match
	m.matches[match.ID] = &copied
	return nil
}

// GetMatch retrieves a match from the in-memory map
func (m *MockRepository) GetMatch(ctx context.Context, id string) (*matcher.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetMatchErr != nil {
		return nil, m.GetMatchErr
	}
	match, ok := m.matches[id]
	if !ok {
		return nil, nil
	}
	copied := *match
	return &copied, nil
}

// UpdateMatchStatus changes the status of a stored match
func (m *MockRepository) UpdateMatchStatus(ctx context.Context, id string, status matcher.MatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateMatchStatusErr != nil {
		return m.UpdateMatchStatusErr
	}
	match, ok := m.matches[id]
	if !ok {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	match.Status = status
	match.UpdatedAt = time.Now()
	return nil
}

// ListMatches returns matches newest first
func (m *MockRepository) ListMatches(ctx context.Context, filters matcher.MatchFilters) ([]*matcher.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*matcher.Match
	for _, match := range m.matches {
		if filters.Flavor != "" && match.Flavor != filters.Flavor {
			continue
		}
		if filters.Status != "" && match.Status != filters.Status {
			continue
		}
		if filters.TransactionID != "" &&
			match.SourceID != filters.TransactionID && match.TargetID != filters.TransactionID {
			continue
		}
		copied := *match
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	if filters.Limit > 0 && len(result) > filters.Limit {
		result = result[:filters.Limit]
	}
	return result, nil
}

// Helper methods for test setup

// AddTransactions adds transactions directly (for test setup)
func (m *MockRepository) AddTransactions(transactions ...matcher.Transaction) {
	_ = m.SaveTransactions(context.Background(), transactions)
}

// Transaction returns the stored copy of a transaction (for assertions)
func (m *MockRepository) Transaction(id string) *matcher.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok {
		return nil
	}
	copied := *tx
	return &copied
}

// MatchCount returns the number of stored matches (for assertions)
func (m *MockRepository) MatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matches)
}
