package service

import (
	"errors"
	"fmt"
)

var (
	// ErrTransactionNotFound is returned when a candidate names a transaction
	// missing from the snapshot passed in.
	ErrTransactionNotFound = errors.New("transaction not found in snapshot")

	// ErrIneligiblePair is returned when a candidate fails its flavor's
	// eligibility rules.
	ErrIneligiblePair = errors.New("transactions are not eligible for this flavor")

	// ErrNoStore is returned when the service was built without a store or ledger.
	ErrNoStore = errors.New("reconciliation service has no transaction store or match ledger")
)

// PersistenceError reports a failed store write for one pair. Writes made
// before the failure have been rolled back; RollbackErr is set when that
// compensation itself failed.
type PersistenceError struct {
	TransactionID string
	Op            string
	Err           error
	RollbackErr   error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.TransactionID != "" {
		msg = fmt.Sprintf("%s for %s failed", e.Op, e.TransactionID)
	}
	msg += ": " + e.Err.Error()
	if e.RollbackErr != nil {
		msg += " (rollback failed: " + e.RollbackErr.Error() + ")"
	}
	return msg
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
