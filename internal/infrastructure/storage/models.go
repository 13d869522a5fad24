package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
)

var (
	// ErrNotFound is returned when a transaction or match does not exist
	ErrNotFound = errors.New("not found")

	// ErrAnnotationConflict is returned when an update would overwrite or
	// clear an annotation owned by a different match.
	ErrAnnotationConflict = errors.New("reconciliation annotation conflict")
)

// TransactionUpdate is a partial update touching one flavor's annotation.
//
// To set an annotation, Ref is non-nil and MatchID equals Ref.MatchID.
// To clear one, Ref is nil and MatchID names the match being removed; the
// store only clears it while it still points at that match.
type TransactionUpdate struct {
	ID      string            `json:"id"`
	Flavor  matcher.Flavor    `json:"flavor"`
	MatchID string            `json:"match_id"`
	Ref     *matcher.MatchRef `json:"ref,omitempty"`
}

// SetAnnotation builds an update attaching ref to a transaction
func SetAnnotation(id string, flavor matcher.Flavor, ref *matcher.MatchRef) TransactionUpdate {
	return TransactionUpdate{ID: id, Flavor: flavor, MatchID: ref.MatchID, Ref: ref}
}

// ClearAnnotation builds an update removing matchID from a transaction
func ClearAnnotation(id string, flavor matcher.Flavor, matchID string) TransactionUpdate {
	return TransactionUpdate{ID: id, Flavor: flavor, MatchID: matchID}
}

// checkAnnotation validates an update against the annotation currently stored.
// Returns (false, nil) when the update is a no-op.
func checkAnnotation(current *matcher.MatchRef, update TransactionUpdate) (bool, error) {
	if update.Ref != nil {
		if current != nil && current.MatchID != update.Ref.MatchID {
			return false, fmt.Errorf("%w: %s is held by match %s for %s",
				ErrAnnotationConflict, update.ID, current.MatchID, update.Flavor)
		}
		return current == nil || *current != *update.Ref, nil
	}

	if current == nil {
		return false, nil
	}
	if current.MatchID != update.MatchID {
		return false, fmt.Errorf("%w: %s is held by match %s, not %s",
			ErrAnnotationConflict, update.ID, current.MatchID, update.MatchID)
	}
	return true, nil
}

// TransactionVersion is one entry of a transaction's edit history
type TransactionVersion struct {
	TransactionID string         `json:"transaction_id"`
	Version       int            `json:"version"`
	Flavor        matcher.Flavor `json:"flavor"`
	MatchID       string         `json:"match_id,omitempty"`
	CounterpartID string         `json:"counterpart_id,omitempty"`
	Note          string         `json:"note"`
	CreatedAt     time.Time      `json:"created_at"`
}
