// Package matcher pairs related financial transactions.
//
// Three flavors share one pipeline:
//   - reimbursement: expense <-> later inflow that pays it back
//   - transfer: money leaving one account <-> arriving in another
//   - duplicate: the same event posted twice to one account
//
// The pipeline is: Generate scans date-ordered pairs inside the profile's
// window and scores each eligible one, then Resolve greedily keeps the
// highest-confidence candidates so no transaction is used twice.
//
// Example usage:
//
//	m := matcher.NewMatcher("USD", nil)
//	cfg := matcher.DefaultConfig(matcher.FlavorTransfer)
//	gen, err := m.Generate(transactions, matcher.FlavorTransfer, cfg)
//	if err != nil {
//		return err
//	}
//	accepted := matcher.Resolve(gen.Candidates)
package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Conversion is the result of converting an amount between currencies
type Conversion struct {
	ConvertedAmount decimal.Decimal
	Rate            decimal.Decimal
}

// CurrencyConverter converts amounts for cross-currency comparisons.
// Convert returns nil when the pair of currencies cannot be compared.
type CurrencyConverter interface {
	Convert(amount decimal.Decimal, from, to string) *Conversion
}

// GenerateStats counts what happened during a scan
type GenerateStats struct {
	PairsScanned          int // Pairs inside the date window
	PairsEligible         int // Pairs passing the flavor predicate
	ConversionUnavailable int // Eligible pairs dropped for missing FX
	Candidates            int
}

// GenerateResult holds candidates in scan order (unsorted by confidence)
type GenerateResult struct {
	Candidates []MatchCandidate
	Stats      GenerateStats
}

// Matcher generates match candidates
type Matcher struct {
	baseCurrency string
	converter    CurrencyConverter
}

// NewMatcher creates a matcher. baseCurrency is the currency of transactions
// without an OriginalCurrency; converter may be nil, in which case
// cross-currency pairs are never candidates.
func NewMatcher(baseCurrency string, converter CurrencyConverter) *Matcher {
	return &Matcher{
		baseCurrency: strings.ToUpper(baseCurrency),
		converter:    converter,
	}
}

// Generate enumerates scored candidates for a flavor.
//
// Transactions are scanned in (date, id) order and the inner loop stops as
// soon as the date gap exceeds the window, so the cost is quadratic only in
// the number of transactions sharing a window. Each unordered pair yields at
// most one candidate, with the earlier transaction as source.
func (m *Matcher) Generate(transactions []Transaction, flavor Flavor, cfg Config) (*GenerateResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := StrategyFor(flavor)
	if err != nil {
		return nil, err
	}

	sorted := sortByDate(transactions)
	result := &GenerateResult{}

	for i := range sorted {
		a := sorted[i]

		for j := i + 1; j < len(sorted); j++ {
			b := sorted[j]
			// Sorted by date, so every later b is at least as far away
			if DaysBetween(a.Date, b.Date) > cfg.MaxDaysDifference {
				break
			}
			result.Stats.PairsScanned++

			if a.ID == b.ID {
				continue
			}
			if !strategy.Eligible(a, b) && !strategy.Eligible(b, a) {
				continue
			}
			result.Stats.PairsEligible++

			candidate, err := m.scorePair(strategy, a, b, cfg)
			if err != nil {
				result.Stats.ConversionUnavailable++
				continue
			}
			if candidate == nil {
				continue
			}
			result.Candidates = append(result.Candidates, *candidate)
		}
	}

	result.Stats.Candidates = len(result.Candidates)
	return result, nil
}

// Rescore scores one pairing of a and b under cfg the way Generate would,
// whichever order they are given in. Returns nil when the pair is not
// eligible for the flavor or falls outside the profile, and
// ErrConversionUnavailable when the currencies cannot be compared.
func (m *Matcher) Rescore(a, b Transaction, flavor Flavor, cfg Config) (*MatchCandidate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := StrategyFor(flavor)
	if err != nil {
		return nil, err
	}
	if a.ID == b.ID {
		return nil, nil
	}

	pair := sortByDate([]Transaction{a, b})
	if !strategy.Eligible(pair[0], pair[1]) && !strategy.Eligible(pair[1], pair[0]) {
		return nil, nil
	}
	return m.scorePair(strategy, pair[0], pair[1], cfg)
}

// scorePair scores a against b, converting b into a's currency when needed.
// Returns ErrConversionUnavailable when the currencies cannot be compared.
func (m *Matcher) scorePair(strategy Strategy, a, b Transaction, cfg Config) (*MatchCandidate, error) {
	converted := b
	var rate decimal.Decimal

	fromCur, toCur := b.Currency(m.baseCurrency), a.Currency(m.baseCurrency)
	if fromCur != toCur {
		if m.converter == nil {
			return nil, ErrConversionUnavailable
		}
		conv := m.converter.Convert(b.Amount, fromCur, toCur)
		if conv == nil {
			return nil, ErrConversionUnavailable
		}
		converted.Amount = conv.ConvertedAmount
		rate = conv.Rate
	}

	score := Score(a, converted, cfg)
	if score == nil {
		return nil, nil
	}

	candidate := &MatchCandidate{
		SourceID:             a.ID,
		TargetID:             b.ID,
		Flavor:               strategy.Flavor(),
		Confidence:           score.Confidence,
		DateDifferenceDays:   score.DateDifferenceDays,
		AmountDifference:     score.AmountDifference,
		PercentageDifference: score.PercentageDifference,
		ConversionRate:       rate,
	}
	candidate.Reasoning = explain(strategy, a, b, toCur, fromCur, score, rate)
	return candidate, nil
}

// explain renders the human readable reason shown to the user and written
// into the transaction history note.
func explain(strategy Strategy, a, b Transaction, aCur, bCur string, score *MatchScore, rate decimal.Decimal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s on %s and %s %s %s on %s",
		strategy.Role(a), a.Amount.StringFixed(2), aCur, a.Date.Format("2006-01-02"),
		strategy.Role(b), b.Amount.StringFixed(2), bCur, b.Date.Format("2006-01-02"))

	if score.AmountDifference.IsZero() {
		sb.WriteString(": exact amount")
	} else {
		fmt.Fprintf(&sb, ": amounts differ by %s %s (%.2f%%)",
			score.AmountDifference.StringFixed(2), aCur, score.PercentageDifference)
	}

	switch score.DateDifferenceDays {
	case 0:
		sb.WriteString(", same day")
	case 1:
		sb.WriteString(", 1 day apart")
	default:
		fmt.Fprintf(&sb, ", %d days apart", score.DateDifferenceDays)
	}

	if !rate.IsZero() {
		fmt.Fprintf(&sb, ", converted at %s", rate.String())
	}
	fmt.Fprintf(&sb, " (confidence %.0f%%)", score.Confidence*100)
	return sb.String()
}

// sortByDate returns a copy ordered by calendar date, then ID
func sortByDate(transactions []Transaction) []Transaction {
	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := Day(sorted[i].Date), Day(sorted[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
