package matcher

import (
	"math"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// MatchScore describes how close two transactions are.
type MatchScore struct {
	DateDifferenceDays   int
	AmountDifference     decimal.Decimal // Absolute difference of magnitudes
	PercentageDifference float64         // Relative difference in percent, 5.83 = 5.83%
	Confidence           float64         // 0-1, 1 only for same-day exact amounts
}

// Score compares two transactions under a tolerance profile.
// Returns nil when the pair is outside the date window or amount tolerance.
//
// Amounts are compared as-is; callers must convert cross-currency pairs
// before scoring.
func Score(a, b Transaction, cfg Config) *MatchScore {
	dateDiff := DaysBetween(a.Date, b.Date)
	if dateDiff > cfg.MaxDaysDifference {
		return nil
	}
	return scoreAmounts(a.Amount, b.Amount, dateDiff, cfg)
}

// scoreAmounts checks | |a| - |b| | / avg(|a|,|b|) against the tolerance
// and derives the confidence.
func scoreAmounts(a, b decimal.Decimal, dateDiff int, cfg Config) *MatchScore {
	absA, absB := a.Abs(), b.Abs()
	sum := absA.Add(absB)

	// Two zero amounts carry no signal
	if sum.IsZero() {
		return nil
	}

	diff := absA.Sub(absB).Abs()
	relative := diff.Div(sum.Div(two))
	if relative.GreaterThan(decimal.NewFromFloat(cfg.TolerancePercentage)) {
		return nil
	}

	relF := relative.InexactFloat64()
	confidence := 1.0
	if cfg.MaxDaysDifference > 0 {
		confidence -= cfg.DateWeight * float64(dateDiff) / float64(cfg.MaxDaysDifference)
	}
	if cfg.TolerancePercentage > 0 {
		confidence -= cfg.AmountWeight * relF / cfg.TolerancePercentage
	}
	confidence = math.Max(0, math.Min(1, confidence))

	// A penalty too small for float64 must still keep the pair below 1.0
	if confidence == 1 && (dateDiff > 0 || !diff.IsZero()) {
		confidence = math.Nextafter(1, 0)
	}

	return &MatchScore{
		DateDifferenceDays:   dateDiff,
		AmountDifference:     diff,
		PercentageDifference: relF * 100,
		Confidence:           confidence,
	}
}
