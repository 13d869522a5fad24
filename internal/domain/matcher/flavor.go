package matcher

import "strings"

// Strategy supplies the flavor-specific parts of matching. The generator,
// assigner and service are shared by every flavor.
type Strategy interface {
	Flavor() Flavor

	// Eligible reports whether a and b may be paired, in that order.
	// The generator tries both orders.
	Eligible(a, b Transaction) bool

	// Participates reports whether a transaction is relevant to the flavor
	// at all (used by the unmatched/matched query helpers).
	Participates(tx Transaction) bool

	// Role names a transaction's side of a pair for reasoning text
	Role(tx Transaction) string
}

// StrategyFor returns the strategy for a flavor
func StrategyFor(f Flavor) (Strategy, error) {
	switch f {
	case FlavorReimbursement:
		return reimbursementStrategy{}, nil
	case FlavorTransfer:
		return transferStrategy{}, nil
	case FlavorDuplicate:
		return duplicateStrategy{}, nil
	}
	return nil, ErrUnknownFlavor
}

type reimbursementStrategy struct{}

func (reimbursementStrategy) Flavor() Flavor { return FlavorReimbursement }

func (reimbursementStrategy) Eligible(a, b Transaction) bool {
	if !a.Amount.IsNegative() || !b.Amount.IsPositive() {
		return false
	}
	return a.State(FlavorReimbursement) == StateUnmatched &&
		b.State(FlavorReimbursement) == StateUnmatched
}

func (reimbursementStrategy) Participates(tx Transaction) bool {
	return !tx.Amount.IsZero()
}

func (reimbursementStrategy) Role(tx Transaction) string {
	if tx.Amount.IsNegative() {
		return "expense"
	}
	return "reimbursement"
}

type transferStrategy struct{}

func (transferStrategy) Flavor() Flavor { return FlavorTransfer }

func (transferStrategy) Eligible(a, b Transaction) bool {
	if a.Account == b.Account {
		return false
	}
	if !isTransfer(a) || !isTransfer(b) {
		return false
	}
	// Opposite signs: one leaves an account, the other arrives
	if a.Amount.Sign()*b.Amount.Sign() >= 0 {
		return false
	}
	return a.State(FlavorTransfer) == StateUnmatched &&
		b.State(FlavorTransfer) == StateUnmatched
}

func (transferStrategy) Participates(tx Transaction) bool {
	return isTransfer(tx)
}

func (transferStrategy) Role(tx Transaction) string {
	if tx.Amount.IsNegative() {
		return "transfer out"
	}
	return "transfer in"
}

func isTransfer(tx Transaction) bool {
	return strings.EqualFold(strings.TrimSpace(tx.Type), TransactionTypeTransfer)
}

type duplicateStrategy struct{}

func (duplicateStrategy) Flavor() Flavor { return FlavorDuplicate }

func (duplicateStrategy) Eligible(a, b Transaction) bool {
	if a.Account != b.Account {
		return false
	}
	if a.Amount.IsZero() || a.Amount.Sign() != b.Amount.Sign() {
		return false
	}
	if !sameDescription(a.Description, b.Description) {
		return false
	}
	return a.State(FlavorDuplicate) == StateUnmatched &&
		b.State(FlavorDuplicate) == StateUnmatched
}

func (duplicateStrategy) Participates(Transaction) bool { return true }

func (duplicateStrategy) Role(Transaction) string { return "posting" }

func sameDescription(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
