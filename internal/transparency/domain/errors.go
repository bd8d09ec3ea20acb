package domain

import "errors"

var (
	ErrNotFound              = errors.New("transparency_report_not_found")
	ErrCauseNotFound         = errors.New("cause_not_found")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidDate           = errors.New("invalid_date")
	ErrInvalidDescription    = errors.New("invalid_description")
	ErrInvalidStatus         = errors.New("invalid_status")
	ErrInvalidAttachment     = errors.New("invalid_attachment")
	ErrAttachmentNotFound    = errors.New("attachment_not_found")
	ErrInvalidAttachmentKind = errors.New("invalid_attachment_kind")
)
