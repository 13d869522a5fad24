package matcher

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MatchStatus is the lifecycle state of a persisted match
type MatchStatus string

const (
	MatchStatusApplied   MatchStatus = "applied"
	MatchStatusUnmatched MatchStatus = "unmatched"
)

// Match is an accepted pairing. Matches are never deleted: unmatching
// flips Status so the record stays for history.
type Match struct {
	ID         string      `json:"id"`
	Flavor     Flavor      `json:"flavor"`
	SourceID   string      `json:"source_id"`
	TargetID   string      `json:"target_id"`
	Confidence float64     `json:"confidence"`
	Reasoning  string      `json:"reasoning"`
	Status     MatchStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewMatch creates an applied match from a candidate
func NewMatch(c MatchCandidate, now time.Time) *Match {
	return &Match{
		ID:         uuid.NewString(),
		Flavor:     c.Flavor,
		SourceID:   c.SourceID,
		TargetID:   c.TargetID,
		Confidence: c.Confidence,
		Reasoning:  c.Reasoning,
		Status:     MatchStatusApplied,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Active reports whether the match still holds its transactions
func (m *Match) Active() bool {
	return m.Status == MatchStatusApplied
}

// SourceRef is the annotation written onto the source transaction
func (m *Match) SourceRef() *MatchRef {
	return &MatchRef{MatchID: m.ID, CounterpartID: m.TargetID}
}

// TargetRef is the annotation written onto the target transaction
func (m *Match) TargetRef() *MatchRef {
	return &MatchRef{MatchID: m.ID, CounterpartID: m.SourceID}
}

// MatchFilters narrows ListMatches. Empty fields match everything.
type MatchFilters struct {
	Flavor        Flavor
	Status        MatchStatus
	TransactionID string
	Limit         int // 0 = no limit
}

// MatchLedger persists match records.
type MatchLedger interface {
	// SaveMatch inserts or replaces a match
	SaveMatch(ctx context.Context, m *Match) error

	// GetMatch returns nil, nil when the id is unknown
	GetMatch(ctx context.Context, id string) (*Match, error)

	// UpdateMatchStatus flips the lifecycle status of a match
	UpdateMatchStatus(ctx context.Context, id string, status MatchStatus) error

	// ListMatches returns matches newest first
	ListMatches(ctx context.Context, filters MatchFilters) ([]*Match, error)
}
