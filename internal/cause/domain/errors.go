package domain

import "errors"

var (
	ErrNotFound            = errors.New("cause_not_found")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidDescription  = errors.New("invalid_description")
	ErrInvalidCategory     = errors.New("invalid_category")
	ErrInvalidTargetAmount = errors.New("invalid_target_amount")
	ErrInvalidDeadline     = errors.New("invalid_deadline")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidImage        = errors.New("invalid_image")
	ErrCauseHasDonations   = errors.New("cause_has_donations")

	ErrInvalidAuditDecision = errors.New("invalid_audit_decision")
	ErrAuditNotesTooLong    = errors.New("audit_notes_too_long")
	ErrAlreadyFinalized     = errors.New("audit_already_finalized")
	ErrAuditNotPending      = errors.New("audit_not_pending")
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 2000
	MaxAuditNotesLength  = 2000
)
