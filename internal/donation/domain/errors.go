package domain

import "errors"

var (
	ErrNotFound            = errors.New("donation_not_found")
	ErrCauseNotFound       = errors.New("cause_not_found")
	ErrAlreadyVerified     = errors.New("donation_already_verified")
	ErrAlreadyFinalized    = errors.New("donation_already_finalized")
	ErrInvalidTransition   = errors.New("invalid_donation_transition")
	ErrNotVerified         = errors.New("donation_not_verified")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrMessageTooLong      = errors.New("message_too_long")
	ErrInvalidDistribution = errors.New("invalid_distribution_status")
	ErrNoteTooLong         = errors.New("distribution_note_too_long")
	ErrInvalidOrderID      = errors.New("invalid_order_id")
)
