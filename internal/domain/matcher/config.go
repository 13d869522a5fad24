package matcher

import "fmt"

// Config is a tolerance profile: how close two transactions must be to pair up.
type Config struct {
	MaxDaysDifference   int     // Inclusive date window in days
	TolerancePercentage float64 // Max relative amount difference, 0.05 = 5%
	DateWeight          float64 // Confidence lost at the edge of the date window
	AmountWeight        float64 // Confidence lost at the edge of the amount tolerance

	// AutoApplyConfidence enables AutoReconcile for candidates at or above it.
	// Zero disables auto-apply for the flavor.
	AutoApplyConfidence float64
}

// DefaultConfig returns the tolerance profile for a flavor.
//
// Reimbursements may arrive weeks later and usually differ by a fee, so the
// amount carries more weight. Transfers land within days but can differ by
// FX spread, hence the wide 12% tolerance. Duplicates are near-simultaneous
// postings of one event, so both windows are tight.
func DefaultConfig(f Flavor) Config {
	switch f {
	case FlavorTransfer:
		return Config{
			MaxDaysDifference:   7,
			TolerancePercentage: 0.12,
			DateWeight:          0.5,
			AmountWeight:        0.5,
			AutoApplyConfidence: 0.9,
		}
	case FlavorDuplicate:
		return Config{
			MaxDaysDifference:   3,
			TolerancePercentage: 0.01,
			DateWeight:          0.3,
			AmountWeight:        0.7,
		}
	default:
		return Config{
			MaxDaysDifference:   30,
			TolerancePercentage: 0.05,
			DateWeight:          0.4,
			AmountWeight:        0.6,
		}
	}
}

// Validate reports the first problem with the profile, wrapping ErrInvalidConfig.
// Values are never clamped.
func (c Config) Validate() error {
	if c.MaxDaysDifference < 0 {
		return fmt.Errorf("%w: max days difference %d is negative", ErrInvalidConfig, c.MaxDaysDifference)
	}
	if c.TolerancePercentage < 0 || c.TolerancePercentage > 1 {
		return fmt.Errorf("%w: tolerance percentage %.4f outside [0,1]", ErrInvalidConfig, c.TolerancePercentage)
	}
	if c.DateWeight <= 0 || c.AmountWeight <= 0 {
		return fmt.Errorf("%w: confidence weights must be positive (date=%.2f, amount=%.2f)",
			ErrInvalidConfig, c.DateWeight, c.AmountWeight)
	}
	// Small epsilon so 0.4+0.6 style sums are not rejected by float rounding
	if c.DateWeight+c.AmountWeight > 1+1e-9 {
		return fmt.Errorf("%w: confidence weights sum to %.2f, must be at most 1",
			ErrInvalidConfig, c.DateWeight+c.AmountWeight)
	}
	if c.AutoApplyConfidence < 0 || c.AutoApplyConfidence > 1 {
		return fmt.Errorf("%w: auto-apply confidence %.2f outside [0,1]", ErrInvalidConfig, c.AutoApplyConfidence)
	}
	return nil
}
