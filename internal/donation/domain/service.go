package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	CauseID     snowflake.ID
	DonorID     snowflake.ID
	Amount      int64
	IsAnonymous bool
	Message     string
}

// PaymentInfo is the gateway data recorded on a donation. It never changes status and is
// only written while the donation is pending.
type PaymentInfo struct {
	Method        string
	TransactionID string
	Payload       json.RawMessage
}

type DistributionRequest struct {
	Status DistributionStatus
	Note   string
	Proof  []string
}

type ListFilter struct {
	CauseID            snowflake.ID
	DonorID            snowflake.ID
	Status             Status
	DistributionStatus DistributionStatus
	From               *time.Time
	To                 *time.Time
	Limit              int
	Offset             int
}

type ListResult struct {
	Items []Donation `json:"items"`
	Total int64      `json:"total"`
}

// Service owns every donation state transition.
//
// MarkVerified and MarkVerifiedByOrderID are the only paths that add a donation's amount to
// its cause. They return ErrAlreadyVerified when another caller already applied it.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Donation, error)
	AttachPaymentToken(ctx context.Context, id snowflake.ID, token, redirectURL string) error
	MarkVerified(ctx context.Context, id snowflake.ID, actorID *snowflake.ID) (*Donation, error)
	MarkVerifiedByOrderID(ctx context.Context, orderID string, actorID *snowflake.ID) (*Donation, error)
	MarkFailed(ctx context.Context, id snowflake.ID) (*Donation, error)
	MarkExpired(ctx context.Context, id snowflake.ID) (*Donation, error)
	RecordPayment(ctx context.Context, orderID string, info PaymentInfo) error
	UpdateDistribution(ctx context.Context, id snowflake.ID, req DistributionRequest) (*Donation, error)

	GetByID(ctx context.Context, id snowflake.ID) (*Donation, error)
	GetByOrderID(ctx context.Context, orderID string) (*Donation, error)
	ListByDonor(ctx context.Context, donorID snowflake.ID, limit, offset int) (ListResult, error)
	List(ctx context.Context, filter ListFilter) (ListResult, error)
}
