package domain

import (
	"context"
	"errors"
)

// Service records and lists audit log entries.
//
// AuditLog fills the actor, IP address and user agent from auditcontext when actorID is nil.
type Service interface {
	AuditLog(ctx context.Context, actorID *string, action Action, targetType string, targetID *string, changes map[string]any, metadata map[string]any) error
	List(ctx context.Context, filter ListFilter) (ListResult, error)
}

type ListResult struct {
	Items []AuditLog `json:"items"`
	Total int64      `json:"total"`
}

var (
	ErrInvalidAction     = errors.New("invalid_action")
	ErrInvalidTargetType = errors.New("invalid_target_type")
)
