package storage

import (
	"context"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	TransactionStore
	HistoryRepository
	matcher.MatchLedger

	// Ping checks the database is reachable
	Ping(ctx context.Context) error
	Close() error
}

// TransactionStore is the transaction store the reconciliation service
// writes annotations through. Only reconciliation annotations are ever
// changed by UpdateTransaction and BatchUpdateTransactions.
type TransactionStore interface {
	// GetAllTransactions returns every stored transaction ordered by date, then ID
	GetAllTransactions(ctx context.Context) ([]matcher.Transaction, error)

	// UpdateTransaction applies one annotation change and records a history
	// version carrying note. Returns ErrNotFound for unknown IDs and
	// ErrAnnotationConflict when the annotation belongs to another match.
	UpdateTransaction(ctx context.Context, update TransactionUpdate, note string) (*matcher.Transaction, error)

	// BatchUpdateTransactions applies all updates or none
	BatchUpdateTransactions(ctx context.Context, updates []TransactionUpdate, note string) ([]matcher.Transaction, error)

	// SaveTransactions inserts or replaces transactions, including annotations
	SaveTransactions(ctx context.Context, transactions []matcher.Transaction) error
}

// HistoryRepository exposes the per-transaction version history
type HistoryRepository interface {
	// GetHistory returns versions oldest first
	GetHistory(ctx context.Context, transactionID string) ([]TransactionVersion, error)
}
