package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Title        string
	Description  string
	Category     string
	TargetAmount int64
	Image        string
	Deadline     time.Time
	CreatedBy    snowflake.ID
}

// UpdateRequest edits descriptive fields. Nil fields are left untouched.
type UpdateRequest struct {
	Title        *string
	Description  *string
	Category     *string
	TargetAmount *int64
	Image        *string
	Deadline     *time.Time
	Status       *CauseStatus
	UpdatedBy    snowflake.ID
}

type ProgressRequest struct {
	Description string
	Images      []string
	Status      *CauseStatus
	UpdatedBy   snowflake.ID
}

type MarkAuditedRequest struct {
	CauseID     snowflake.ID
	Decision    AuditStatus
	Notes       string
	ActorID     snowflake.ID
	DocumentRef string
}

type ListResult struct {
	Items []CauseView `json:"items"`
	Total int64       `json:"total"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Cause, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Cause, error)
	Delete(ctx context.Context, id snowflake.ID, actorID snowflake.ID) error
	AddProgressUpdate(ctx context.Context, id snowflake.ID, req ProgressRequest) (*ProgressUpdate, error)

	GetByID(ctx context.Context, id snowflake.ID) (*CauseView, error)
	List(ctx context.Context, filter ListFilter) (ListResult, error)
	ListProgressUpdates(ctx context.Context, causeID snowflake.ID) ([]ProgressUpdate, error)

	StartAudit(ctx context.Context, causeID snowflake.ID, actorID snowflake.ID) (*Cause, error)
	MarkAudited(ctx context.Context, req MarkAuditedRequest) (*Cause, error)
}
