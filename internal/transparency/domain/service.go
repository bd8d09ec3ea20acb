package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	CauseID     snowflake.ID
	Amount      int64
	Date        time.Time
	Description string
	Photos      []Attachment
	Documents   []Attachment
	Status      Status
	ActorID     snowflake.ID
}

// UpdateRequest edits a report. Nil fields are left untouched; non-nil attachment lists
// are appended.
type UpdateRequest struct {
	Amount      *int64
	Date        *time.Time
	Description *string
	Photos      []Attachment
	Documents   []Attachment
	Status      *Status
	ActorID     snowflake.ID
}

type ListFilter struct {
	CauseID       snowflake.ID
	Status        Status
	IncludeDrafts bool
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

type ListResult struct {
	Items          []TransparencyReport `json:"items"`
	Total          int64                `json:"total"`
	TotalDisbursed int64                `json:"total_disbursed"`
}

// Service manages transparency reports. Every change to a published amount is applied to
// the cause's disbursed total in the same transaction as the report write.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*TransparencyReport, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*TransparencyReport, error)
	Delete(ctx context.Context, id snowflake.ID, actorID snowflake.ID) error
	RemoveAttachment(ctx context.Context, id snowflake.ID, kind AttachmentKind, attachmentID string, actorID snowflake.ID) (*TransparencyReport, error)

	GetByID(ctx context.Context, id snowflake.ID) (*TransparencyReport, error)
	ListByCause(ctx context.Context, causeID snowflake.ID, includeDrafts bool) (ListResult, error)
	List(ctx context.Context, filter ListFilter) (ListResult, error)
}
