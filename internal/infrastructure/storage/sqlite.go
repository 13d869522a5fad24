package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

const dateLayout = "2006-01-02"

const transactionColumns = `id, date, amount, original_currency, account, description, category, type,
	reimbursement_match_id, reimbursement_counterpart_id,
	transfer_match_id, transfer_counterpart_id,
	duplicate_match_id, duplicate_counterpart_id`

// Storage provides SQLite database access for transactions, matches and
// transaction history. It implements the Repository interface.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// A single connection keeps the PRAGMA in effect and serializes writers
	db.SetMaxOpenConns(1)

	s := &Storage{db: db, now: time.Now}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Ping verifies the database connection is alive
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// annotationColumns maps a flavor to its match and counterpart columns
func annotationColumns(f matcher.Flavor) (string, string, error) {
	switch f {
	case matcher.FlavorReimbursement:
		return "reimbursement_match_id", "reimbursement_counterpart_id", nil
	case matcher.FlavorTransfer:
		return "transfer_match_id", "transfer_counterpart_id", nil
	case matcher.FlavorDuplicate:
		return "duplicate_match_id", "duplicate_counterpart_id", nil
	}
	return "", "", fmt.Errorf("%w: %q", matcher.ErrUnknownFlavor, f)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*matcher.Transaction, error) {
	var (
		tx                  matcher.Transaction
		date, amount        string
		reimbID, reimbCP    sql.NullString
		transferID, transCP sql.NullString
		duplicateID, dupCP  sql.NullString
	)

	err := row.Scan(
		&tx.ID, &date, &amount, &tx.OriginalCurrency, &tx.Account,
		&tx.Description, &tx.Category, &tx.Type,
		&reimbID, &reimbCP,
		&transferID, &transCP,
		&duplicateID, &dupCP,
	)
	if err != nil {
		return nil, err
	}

	if tx.Date, err = time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("transaction %s has invalid date %q: %w", tx.ID, date, err)
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s has invalid amount %q: %w", tx.ID, amount, err)
	}

	tx.Reconciliation = matcher.Reconciliation{
		Reimbursement: refFromColumns(reimbID, reimbCP),
		Transfer:      refFromColumns(transferID, transCP),
		Duplicate:     refFromColumns(duplicateID, dupCP),
	}
	return &tx, nil
}

func refFromColumns(matchID, counterpartID sql.NullString) *matcher.MatchRef {
	if !matchID.Valid || matchID.String == "" {
		return nil
	}
	return &matcher.MatchRef{MatchID: matchID.String, CounterpartID: counterpartID.String}
}

func refColumns(ref *matcher.MatchRef) (sql.NullString, sql.NullString) {
	if ref == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: ref.MatchID, Valid: true},
		sql.NullString{String: ref.CounterpartID, Valid: true}
}

// GetAllTransactions returns every transaction ordered by date, then ID
func (s *Storage) GetAllTransactions(ctx context.Context) ([]matcher.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []matcher.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// GetTransaction returns a single transaction or ErrNotFound
func (s *Storage) GetTransaction(ctx context.Context, id string) (*matcher.Transaction, error) {
	return getTransaction(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTransaction(ctx context.Context, q queryRower, id string) (*matcher.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return tx, err
}

// SaveTransactions inserts or updates transactions in one database transaction
func (s *Storage) SaveTransactions(ctx context.Context, transactions []matcher.Transaction) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
	INSERT INTO transactions (` + transactionColumns + `, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		date = excluded.date,
		amount = excluded.amount,
		original_currency = excluded.original_currency,
		account = excluded.account,
		description = excluded.description,
		category = excluded.category,
		type = excluded.type,
		reimbursement_match_id = excluded.reimbursement_match_id,
		reimbursement_counterpart_id = excluded.reimbursement_counterpart_id,
		transfer_match_id = excluded.transfer_match_id,
		transfer_counterpart_id = excluded.transfer_counterpart_id,
		duplicate_match_id = excluded.duplicate_match_id,
		duplicate_counterpart_id = excluded.duplicate_counterpart_id,
		version = transactions.version + 1,
		updated_at = excluded.updated_at
	`

	now := s.now()
	for _, tx := range transactions {
		reimbID, reimbCP := refColumns(tx.Reconciliation.Reimbursement)
		transferID, transferCP := refColumns(tx.Reconciliation.Transfer)
		dupID, dupCP := refColumns(tx.Reconciliation.Duplicate)

		_, err := dbTx.ExecContext(ctx, query,
			tx.ID,
			matcher.Day(tx.Date).Format(dateLayout),
			tx.Amount.String(),
			strings.ToUpper(tx.OriginalCurrency),
			tx.Account,
			tx.Description,
			tx.Category,
			tx.Type,
			reimbID, reimbCP,
			transferID, transferCP,
			dupID, dupCP,
			now,
		)
		if err != nil {
			_ = dbTx.Rollback()
			return fmt.Errorf("failed to save transaction %s: %w", tx.ID, err)
		}
	}

	return dbTx.Commit()
}

// UpdateTransaction applies a single annotation update
func (s *Storage) UpdateTransaction(ctx context.Context, update TransactionUpdate, note string) (*matcher.Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tx, err := s.applyUpdate(ctx, dbTx, update, note)
	if err != nil {
		_ = dbTx.Rollback()
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update of %s: %w", update.ID, err)
	}
	return tx, nil
}

// BatchUpdateTransactions applies every update inside one database transaction
func (s *Storage) BatchUpdateTransactions(ctx context.Context, updates []TransactionUpdate, note string) ([]matcher.Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	updated := make([]matcher.Transaction, 0, len(updates))
	for _, update := range updates {
		tx, err := s.applyUpdate(ctx, dbTx, update, note)
		if err != nil {
			_ = dbTx.Rollback()
			return nil, err
		}
		updated = append(updated, *tx)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch update: %w", err)
	}
	return updated, nil
}

// applyUpdate checks the stored annotation, writes the change and a
// history version, and returns the transaction as stored afterwards.
func (s *Storage) applyUpdate(ctx context.Context, dbTx *sql.Tx, update TransactionUpdate, note string) (*matcher.Transaction, error) {
	matchCol, counterpartCol, err := annotationColumns(update.Flavor)
	if err != nil {
		return nil, err
	}

	var (
		version                int
		matchID, counterpartID sql.NullString
	)
	err = dbTx.QueryRowContext(ctx,
		`SELECT version, `+matchCol+`, `+counterpartCol+` FROM transactions WHERE id = ?`,
		update.ID,
	).Scan(&version, &matchID, &counterpartID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", update.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction %s: %w", update.ID, err)
	}

	changed, err := checkAnnotation(refFromColumns(matchID, counterpartID), update)
	if err != nil {
		return nil, err
	}

	if changed {
		now := s.now()
		newMatch, newCounterpart := refColumns(update.Ref)

		_, err = dbTx.ExecContext(ctx,
			`UPDATE transactions SET `+matchCol+` = ?, `+counterpartCol+` = ?,
			 version = ?, updated_at = ? WHERE id = ?`,
			newMatch, newCounterpart, version+1, now, update.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update transaction %s: %w", update.ID, err)
		}

		_, err = dbTx.ExecContext(ctx, `
			INSERT INTO transaction_versions
			(transaction_id, version, flavor, match_id, counterpart_id, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			update.ID, version+1, string(update.Flavor), newMatch, newCounterpart, note, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record history for %s: %w", update.ID, err)
		}
	}

	return getTransaction(ctx, dbTx, update.ID)
}

// GetHistory returns the recorded annotation versions of a transaction
func (s *Storage) GetHistory(ctx context.Context, transactionID string) ([]TransactionVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, version, flavor, match_id, counterpart_id, note, created_at
		FROM transaction_versions
		WHERE transaction_id = ?
		ORDER BY version, id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []TransactionVersion
	for rows.Next() {
		var (
			v                      TransactionVersion
			flavor                 string
			matchID, counterpartID sql.NullString
		)
		if err := rows.Scan(&v.TransactionID, &v.Version, &flavor, &matchID, &counterpartID, &v.Note, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Flavor = matcher.Flavor(flavor)
		v.MatchID = matchID.String
		v.CounterpartID = counterpartID.String
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// SaveMatch inserts or replaces a match record
func (s *Storage) SaveMatch(ctx context.Context, m *matcher.Match) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches
		(id, flavor, source_id, target_id, confidence, reasoning, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			confidence = excluded.confidence,
			reasoning = excluded.reasoning,
			updated_at = excluded.updated_at`,
		m.ID, string(m.Flavor), m.SourceID, m.TargetID, m.Confidence, m.Reasoning,
		string(m.Status), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save match %s: %w", m.ID, err)
	}
	return nil
}

const matchColumns = `id, flavor, source_id, target_id, confidence, reasoning, status, created_at, updated_at`

func scanMatch(row rowScanner) (*matcher.Match, error) {
	var (
		m              matcher.Match
		flavor, status string
	)
	err := row.Scan(&m.ID, &flavor, &m.SourceID, &m.TargetID, &m.Confidence,
		&m.Reasoning, &status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Flavor = matcher.Flavor(flavor)
	m.Status = matcher.MatchStatus(status)
	return &m, nil
}

// GetMatch retrieves a match by ID. Returns nil, nil when it does not exist.
func (s *Storage) GetMatch(ctx context.Context, id string) (*matcher.Match, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %s: %w", id, err)
	}
	return m, nil
}

// UpdateMatchStatus changes the lifecycle status of a match
func (s *Storage) UpdateMatchStatus(ctx context.Context, id string, status matcher.MatchStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE matches SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListMatches returns matches newest first
func (s *Storage) ListMatches(ctx context.Context, filters matcher.MatchFilters) ([]*matcher.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1=1`
	var args []any

	if filters.Flavor != "" {
		query += ` AND flavor = ?`
		args = append(args, string(filters.Flavor))
	}
	if filters.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filters.Status))
	}
	if filters.TransactionID != "" {
		query += ` AND (source_id = ? OR target_id = ?)`
		args = append(args, filters.TransactionID, filters.TransactionID)
	}

	query += ` ORDER BY created_at DESC, id`
	if filters.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filters.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*matcher.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
