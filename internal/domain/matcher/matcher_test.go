package matcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create test transaction
func makeTransaction(id, account, amount string, date time.Time) Transaction {
	return Transaction{
		ID:          id,
		Account:     account,
		Amount:      decimal.RequireFromString(amount),
		Date:        date,
		Description: "test " + id,
	}
}

func makeTransfer(id, account, amount string, date time.Time) Transaction {
	tx := makeTransaction(id, account, amount, date)
	tx.Type = TransactionTypeTransfer
	return tx
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fixedRates converts using a static table keyed by "FROM->TO"
type fixedRates map[string]string

func (f fixedRates) Convert(amount decimal.Decimal, from, to string) *Conversion {
	rate, ok := f[from+"->"+to]
	if !ok {
		return nil
	}
	r := decimal.RequireFromString(rate)
	return &Conversion{ConvertedAmount: amount.Mul(r), Rate: r}
}

func TestMatcher_ReimbursementScenario(t *testing.T) {
	// Arrange
	m := NewMatcher("USD", nil)
	transactions := []Transaction{
		makeTransaction("exp", "checking", "-100.00", day(2024, 1, 10)),
		makeTransaction("reimb", "checking", "98.50", day(2024, 1, 15)),
	}
	cfg := DefaultConfig(FlavorReimbursement)
	cfg.MaxDaysDifference = 30
	cfg.TolerancePercentage = 0.05

	// Act
	result, err := m.Generate(transactions, FlavorReimbursement, cfg)

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.Equal(t, "exp", c.SourceID)
	assert.Equal(t, "reimb", c.TargetID)
	assert.Equal(t, FlavorReimbursement, c.Flavor)
	assert.Equal(t, 5, c.DateDifferenceDays)
	assert.True(t, c.AmountDifference.Equal(decimal.RequireFromString("1.50")), "got %s", c.AmountDifference)
	assert.Greater(t, c.Confidence, 0.0)
	assert.Less(t, c.Confidence, 1.0)
	assert.Contains(t, c.Reasoning, "expense")
	assert.Contains(t, c.Reasoning, "5 days apart")
}

func TestMatcher_TransferWithinTwelvePercent(t *testing.T) {
	// Arrange
	m := NewMatcher("USD", nil)
	transactions := []Transaction{
		makeTransfer("out", "A", "-39257.85", day(2024, 8, 26)),
		makeTransfer("in", "B", "37033.75", day(2024, 8, 28)),
	}

	// Act
	result, err := m.Generate(transactions, FlavorTransfer, DefaultConfig(FlavorTransfer))

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.InDelta(t, 5.83, result.Candidates[0].PercentageDifference, 0.01)
	assert.Equal(t, 2, result.Candidates[0].DateDifferenceDays)
}

func TestMatcher_TransferBeyondTolerance_NoMatch(t *testing.T) {
	// Arrange
	m := NewMatcher("USD", nil)
	transactions := []Transaction{
		makeTransfer("out", "A", "-1000", day(2024, 8, 26)),
		makeTransfer("in", "B", "800", day(2024, 8, 26)),
	}

	// Act
	result, err := m.Generate(transactions, FlavorTransfer, DefaultConfig(FlavorTransfer))

	// Assert - 22.2% apart, tolerance is 12%
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, 1, result.Stats.PairsEligible)
}

func TestMatcher_TransferRequiresDifferentAccountsAndType(t *testing.T) {
	m := NewMatcher("USD", nil)
	date := day(2024, 3, 1)

	tests := []struct {
		name string
		a, b Transaction
	}{
		{"same account", makeTransfer("a", "A", "-50", date), makeTransfer("b", "A", "50", date)},
		{"same sign", makeTransfer("a", "A", "-50", date), makeTransfer("b", "B", "-50", date)},
		{"not a transfer", makeTransfer("a", "A", "-50", date), makeTransaction("b", "B", "50", date)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := m.Generate([]Transaction{tt.a, tt.b}, FlavorTransfer, DefaultConfig(FlavorTransfer))
			require.NoError(t, err)
			assert.Empty(t, result.Candidates)
		})
	}
}

func TestMatcher_DuplicateExactPair(t *testing.T) {
	// Arrange
	m := NewMatcher("USD", nil)
	a := makeTransaction("d1", "card", "-25.00", day(2024, 5, 2))
	b := makeTransaction("d2", "card", "-25.00", day(2024, 5, 2))
	a.Description = "Coffee Shop"
	b.Description = "coffee shop"

	// Act
	result, err := m.Generate([]Transaction{b, a}, FlavorDuplicate, DefaultConfig(FlavorDuplicate))

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 1.0, result.Candidates[0].Confidence)
	assert.Equal(t, "d1", result.Candidates[0].SourceID, "equal dates orient by ID")
	assert.Contains(t, result.Candidates[0].Reasoning, "exact amount")
}

func TestMatcher_DuplicateRequiresSameDescription(t *testing.T) {
	m := NewMatcher("USD", nil)
	a := makeTransaction("d1", "card", "-25.00", day(2024, 5, 2))
	b := makeTransaction("d2", "card", "-25.00", day(2024, 5, 2))
	a.Description = "Coffee Shop"
	b.Description = "Book Store"

	result, err := m.Generate([]Transaction{a, b}, FlavorDuplicate, DefaultConfig(FlavorDuplicate))

	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestMatcher_DateWindowPrunesScan(t *testing.T) {
	// Arrange
	m := NewMatcher("USD", nil)
	transactions := []Transaction{
		makeTransaction("exp", "checking", "-100", day(2024, 1, 1)),
		makeTransaction("late", "checking", "100", day(2024, 3, 1)),
	}

	// Act
	result, err := m.Generate(transactions, FlavorReimbursement, DefaultConfig(FlavorReimbursement))

	// Assert - pair is never scanned
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, 0, result.Stats.PairsScanned)
}

func TestMatcher_VeryWideWindowStillScans(t *testing.T) {
	// Arrange - a window this wide overflows time.Duration
	m := NewMatcher("USD", nil)
	transactions := []Transaction{
		makeTransaction("exp", "checking", "-100.00", day(2024, 1, 10)),
		makeTransaction("reimb", "checking", "98.50", day(2024, 1, 15)),
	}
	cfg := DefaultConfig(FlavorReimbursement)
	cfg.MaxDaysDifference = 200000
	require.NoError(t, cfg.Validate())

	// Act
	result, err := m.Generate(transactions, FlavorReimbursement, cfg)

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "exp", result.Candidates[0].SourceID)
	assert.Equal(t, 1, result.Stats.PairsScanned)
}

func TestMatcher_Rescore(t *testing.T) {
	m := NewMatcher("USD", nil)
	exp := makeTransaction("exp", "checking", "-100.00", day(2024, 1, 10))
	reimb := makeTransaction("reimb", "checking", "98.50", day(2024, 1, 15))
	cfg := DefaultConfig(FlavorReimbursement)

	t.Run("matches Generate in either order", func(t *testing.T) {
		gen, err := m.Generate([]Transaction{exp, reimb}, FlavorReimbursement, cfg)
		require.NoError(t, err)
		require.Len(t, gen.Candidates, 1)

		forward, err := m.Rescore(exp, reimb, FlavorReimbursement, cfg)
		require.NoError(t, err)
		reversed, err := m.Rescore(reimb, exp, FlavorReimbursement, cfg)
		require.NoError(t, err)

		assert.Equal(t, &gen.Candidates[0], forward)
		assert.Equal(t, forward, reversed)
	})

	tests := []struct {
		name string
		a, b Transaction
	}{
		{"outside tolerance", exp, makeTransaction("big", "checking", "5000.00", day(2024, 1, 12))},
		{"outside window", exp, makeTransaction("late", "checking", "100.00", day(2024, 3, 1))},
		{"ineligible", exp, makeTransaction("spend", "checking", "-100.00", day(2024, 1, 11))},
		{"self", exp, exp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := m.Rescore(tt.a, tt.b, FlavorReimbursement, cfg)

			require.NoError(t, err)
			assert.Nil(t, c)
		})
	}

	t.Run("missing exchange rate", func(t *testing.T) {
		eur := reimb
		eur.OriginalCurrency = "EUR"

		_, err := m.Rescore(exp, eur, FlavorReimbursement, cfg)

		assert.ErrorIs(t, err, ErrConversionUnavailable)
	})
}

func TestMatcher_ReimbursementBeforeExpenseIsOrientedByDate(t *testing.T) {
	m := NewMatcher("USD", nil)
	transactions := []Transaction{
		makeTransaction("exp", "checking", "-40", day(2024, 2, 10)),
		makeTransaction("advance", "savings", "40", day(2024, 2, 8)),
	}

	result, err := m.Generate(transactions, FlavorReimbursement, DefaultConfig(FlavorReimbursement))

	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "advance", result.Candidates[0].SourceID)
	assert.Equal(t, "exp", result.Candidates[0].TargetID)
}

func TestMatcher_SkipsAlreadyMatched(t *testing.T) {
	m := NewMatcher("USD", nil)
	exp := makeTransaction("exp", "checking", "-100", day(2024, 1, 10))
	reimb := makeTransaction("reimb", "checking", "100", day(2024, 1, 11))
	reimb.Reconciliation = reimb.Reconciliation.WithRef(FlavorReimbursement, &MatchRef{MatchID: "m1", CounterpartID: "other"})

	result, err := m.Generate([]Transaction{exp, reimb}, FlavorReimbursement, DefaultConfig(FlavorReimbursement))

	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestMatcher_MatchedInOtherFlavorStillEligible(t *testing.T) {
	m := NewMatcher("USD", nil)
	out := makeTransfer("out", "A", "-100", day(2024, 1, 10))
	in := makeTransfer("in", "B", "100", day(2024, 1, 10))
	in.Reconciliation = in.Reconciliation.WithRef(FlavorReimbursement, &MatchRef{MatchID: "m1", CounterpartID: "x"})

	result, err := m.Generate([]Transaction{out, in}, FlavorTransfer, DefaultConfig(FlavorTransfer))

	require.NoError(t, err)
	assert.Len(t, result.Candidates, 1)
}

func TestMatcher_CrossCurrency(t *testing.T) {
	out := makeTransfer("out", "A", "-100", day(2024, 6, 1))
	in := makeTransfer("in", "B", "92", day(2024, 6, 2))
	in.OriginalCurrency = "eur"

	t.Run("converts with rate", func(t *testing.T) {
		m := NewMatcher("USD", fixedRates{"EUR->USD": "1.08"})

		result, err := m.Generate([]Transaction{out, in}, FlavorTransfer, DefaultConfig(FlavorTransfer))

		require.NoError(t, err)
		require.Len(t, result.Candidates, 1)
		assert.True(t, result.Candidates[0].ConversionRate.Equal(decimal.RequireFromString("1.08")))
		// 92 * 1.08 = 99.36
		assert.True(t, result.Candidates[0].AmountDifference.Equal(decimal.RequireFromString("0.64")))
		assert.Contains(t, result.Candidates[0].Reasoning, "converted at 1.08")
	})

	t.Run("drops pair when rate is missing", func(t *testing.T) {
		m := NewMatcher("USD", fixedRates{})

		result, err := m.Generate([]Transaction{out, in}, FlavorTransfer, DefaultConfig(FlavorTransfer))

		require.NoError(t, err)
		assert.Empty(t, result.Candidates)
		assert.Equal(t, 1, result.Stats.ConversionUnavailable)
	})

	t.Run("drops pair without converter", func(t *testing.T) {
		m := NewMatcher("USD", nil)

		result, err := m.Generate([]Transaction{out, in}, FlavorTransfer, DefaultConfig(FlavorTransfer))

		require.NoError(t, err)
		assert.Empty(t, result.Candidates)
		assert.Equal(t, 1, result.Stats.ConversionUnavailable)
	})
}

func TestMatcher_InvalidConfig(t *testing.T) {
	m := NewMatcher("USD", nil)
	cfg := DefaultConfig(FlavorReimbursement)
	cfg.MaxDaysDifference = -1

	_, err := m.Generate(nil, FlavorReimbursement, cfg)

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMatcher_UnknownFlavor(t *testing.T) {
	m := NewMatcher("USD", nil)

	_, err := m.Generate(nil, Flavor("refund"), DefaultConfig(FlavorReimbursement))

	assert.ErrorIs(t, err, ErrUnknownFlavor)
}

func TestMatcher_Deterministic(t *testing.T) {
	// Arrange - several overlapping expenses and reimbursements
	base := day(2024, 4, 1)
	transactions := []Transaction{
		makeTransaction("e1", "checking", "-50.00", base),
		makeTransaction("e2", "checking", "-50.00", base),
		makeTransaction("e3", "card", "-49.00", base.AddDate(0, 0, 2)),
		makeTransaction("r1", "checking", "50.00", base.AddDate(0, 0, 3)),
		makeTransaction("r2", "savings", "49.50", base.AddDate(0, 0, 3)),
	}
	reversed := make([]Transaction, len(transactions))
	for i, tx := range transactions {
		reversed[len(transactions)-1-i] = tx
	}
	m := NewMatcher("USD", nil)
	cfg := DefaultConfig(FlavorReimbursement)

	// Act
	first, err := m.Generate(transactions, FlavorReimbursement, cfg)
	require.NoError(t, err)
	second, err := m.Generate(reversed, FlavorReimbursement, cfg)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, Resolve(first.Candidates), Resolve(second.Candidates))
	assert.Equal(t, first.Candidates, second.Candidates)
}
