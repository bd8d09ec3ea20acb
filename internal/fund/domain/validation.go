package domain

// ValidateBalance enforces 0 <= disbursed <= current for a cause's counters.
func ValidateBalance(current, disbursed int64) error {
	if current < 0 || disbursed < 0 {
		return ErrNegativeBalance
	}
	if disbursed > current {
		return ErrInsufficientFunds
	}
	return nil
}

// ValidateDisbursementDelta checks that moving disbursed by delta keeps the balance valid.
func ValidateDisbursementDelta(current, disbursed, delta int64) error {
	next := disbursed + delta
	if next < 0 {
		return ErrNegativeBalance
	}
	return ValidateBalance(current, next)
}
