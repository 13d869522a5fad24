package matcher

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Flavor identifies a reconciliation variant.
type Flavor string

const (
	FlavorReimbursement Flavor = "reimbursement"
	FlavorTransfer      Flavor = "transfer"
	FlavorDuplicate     Flavor = "duplicate"
)

// AllFlavors lists every flavor in a stable order.
var AllFlavors = []Flavor{FlavorReimbursement, FlavorTransfer, FlavorDuplicate}

// ParseFlavor converts a user supplied string into a Flavor
func ParseFlavor(s string) (Flavor, error) {
	switch Flavor(strings.ToLower(strings.TrimSpace(s))) {
	case FlavorReimbursement:
		return FlavorReimbursement, nil
	case FlavorTransfer:
		return FlavorTransfer, nil
	case FlavorDuplicate:
		return FlavorDuplicate, nil
	}
	return "", ErrUnknownFlavor
}

// Title returns the flavor name for human readable notes ("Transfer").
func (f Flavor) Title() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

// TransactionTypeTransfer marks transactions that move money between accounts
const TransactionTypeTransfer = "transfer"

// ReconciliationState is the per-flavor match state of a transaction
type ReconciliationState string

const (
	StateUnmatched ReconciliationState = "unmatched"
	StateMatched   ReconciliationState = "matched"
)

// MatchRef is the back-reference stored on a matched transaction.
type MatchRef struct {
	MatchID       string `json:"match_id"`
	CounterpartID string `json:"counterpart_id"`
}

// Reconciliation holds the match annotations of a transaction.
// A transaction can take part in at most one match per flavor.
type Reconciliation struct {
	Reimbursement *MatchRef `json:"reimbursement,omitempty"`
	Transfer      *MatchRef `json:"transfer,omitempty"`
	Duplicate     *MatchRef `json:"duplicate,omitempty"`
}

// Ref returns the annotation for a flavor, or nil when unmatched
func (r Reconciliation) Ref(f Flavor) *MatchRef {
	switch f {
	case FlavorReimbursement:
		return r.Reimbursement
	case FlavorTransfer:
		return r.Transfer
	case FlavorDuplicate:
		return r.Duplicate
	}
	return nil
}

// WithRef returns a copy with the annotation for f replaced. A nil ref clears it.
func (r Reconciliation) WithRef(f Flavor, ref *MatchRef) Reconciliation {
	switch f {
	case FlavorReimbursement:
		r.Reimbursement = ref
	case FlavorTransfer:
		r.Transfer = ref
	case FlavorDuplicate:
		r.Duplicate = ref
	}
	return r
}

// Transaction is a snapshot of a stored transaction.
// Matching only ever changes the Reconciliation field.
type Transaction struct {
	ID               string          `json:"id"`
	Date             time.Time       `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	OriginalCurrency string          `json:"original_currency,omitempty"`
	Account          string          `json:"account"`
	Description      string          `json:"description"`
	Category         string          `json:"category,omitempty"`
	Type             string          `json:"type,omitempty"`
	Reconciliation   Reconciliation  `json:"reconciliation"`
}

// State reports whether the transaction is matched for the given flavor
func (t Transaction) State(f Flavor) ReconciliationState {
	if t.Reconciliation.Ref(f) != nil {
		return StateMatched
	}
	return StateUnmatched
}

// Currency returns the currency of Amount, falling back to base when the
// transaction is in its account's default currency.
func (t Transaction) Currency(base string) string {
	if t.OriginalCurrency != "" {
		return strings.ToUpper(t.OriginalCurrency)
	}
	return strings.ToUpper(base)
}

// Day truncates a timestamp to its calendar date, expressed in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the absolute number of calendar days between a and b
func DaysBetween(a, b time.Time) int {
	diff := Day(b).Sub(Day(a)).Hours() / 24
	if diff < 0 {
		diff = -diff
	}
	return int(diff + 0.5)
}

// MatchCandidate is a scored, unconfirmed pairing of two transactions.
// SourceID is always the member with the earlier date.
type MatchCandidate struct {
	SourceID             string          `json:"source_id"`
	TargetID             string          `json:"target_id"`
	Flavor               Flavor          `json:"flavor"`
	Confidence           float64         `json:"confidence"`
	DateDifferenceDays   int             `json:"date_difference_days"`
	AmountDifference     decimal.Decimal `json:"amount_difference"`
	PercentageDifference float64         `json:"percentage_difference"`
	ConversionRate       decimal.Decimal `json:"conversion_rate,omitempty"`
	Reasoning            string          `json:"reasoning"`
}

// Contains reports whether id is one of the candidate's members
func (c MatchCandidate) Contains(id string) bool {
	return c.SourceID == id || c.TargetID == id
}

// MatchResult pairs a candidate with the transactions it refers to.
type MatchResult struct {
	Candidate         MatchCandidate `json:"candidate"`
	SourceTransaction Transaction    `json:"source_transaction"`
	TargetTransaction Transaction    `json:"target_transaction"`
}
