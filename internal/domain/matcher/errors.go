package matcher

import "errors"

var (
	// ErrInvalidConfig is returned when a tolerance profile cannot be used.
	ErrInvalidConfig = errors.New("invalid tolerance config")

	// ErrUnknownFlavor is returned for flavor names outside AllFlavors.
	ErrUnknownFlavor = errors.New("unknown reconciliation flavor")

	// ErrConversionUnavailable marks a cross-currency pair that could not be compared.
	ErrConversionUnavailable = errors.New("currency conversion unavailable")

	// ErrInvariantViolation means a transaction would end up in two active
	// matches of the same flavor.
	ErrInvariantViolation = errors.New("transaction already used by another match")
)
