package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the payment lifecycle of a donation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusFailed   Status = "failed"
	StatusExpired  Status = "expired"
)

// IsTerminal reports whether the donation can no longer change payment status.
func (s Status) IsTerminal() bool {
	return s == StatusVerified || s == StatusFailed || s == StatusExpired
}

// DistributionStatus tracks how the donated funds were used.
type DistributionStatus string

const (
	DistributionPending     DistributionStatus = "pending"
	DistributionDistributed DistributionStatus = "distributed"
	DistributionUsed        DistributionStatus = "used"
)

func IsValidDistributionStatus(status DistributionStatus) bool {
	switch status {
	case DistributionPending, DistributionDistributed, DistributionUsed:
		return true
	default:
		return false
	}
}

const (
	MinAmount              int64 = 1000
	MaxMessageLength             = 500
	MaxDistributionNoteLen       = 1000
	OrderIDPrefix                = "DONATION-"
)

// OrderIDFor derives the payment gateway order id from the donation id.
func OrderIDFor(id snowflake.ID) string {
	return OrderIDPrefix + id.String()
}

// Donation is a single pledge by a donor to a cause.
type Donation struct {
	ID                 snowflake.ID       `json:"id" gorm:"primaryKey"`
	OrderID            string             `json:"order_id" gorm:"type:text;not null;uniqueIndex:ux_donations_order_id"`
	DonorID            snowflake.ID       `json:"donor_id" gorm:"not null;index:ix_donations_donor_created,priority:1"`
	CauseID            snowflake.ID       `json:"cause_id" gorm:"not null;index:ix_donations_cause_status,priority:1"`
	Amount             int64              `json:"amount" gorm:"not null"`
	IsAnonymous        bool               `json:"is_anonymous" gorm:"not null;default:false"`
	Message            string             `json:"message,omitempty" gorm:"type:text"`
	Status             Status             `json:"status" gorm:"type:text;not null;default:pending;index:ix_donations_cause_status,priority:2"`
	PaymentToken       *string            `json:"payment_token,omitempty" gorm:"type:text"`
	RedirectURL        *string            `json:"redirect_url,omitempty" gorm:"type:text"`
	PaymentMethod      *string            `json:"payment_method,omitempty" gorm:"type:text"`
	TransactionID      *string            `json:"transaction_id,omitempty" gorm:"type:text"`
	PaymentData        datatypes.JSON     `json:"payment_data,omitempty" gorm:"type:json"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	VerifiedBy         *snowflake.ID      `json:"verified_by,omitempty"`
	DistributionStatus DistributionStatus `json:"distribution_status" gorm:"type:text;not null;default:pending"`
	DistributionProof  datatypes.JSON     `json:"distribution_proof,omitempty" gorm:"type:json"`
	DistributionNote   string             `json:"distribution_note,omitempty" gorm:"type:text"`
	DistributedAt      *time.Time         `json:"distributed_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at" gorm:"not null;index:ix_donations_donor_created,priority:2"`
	UpdatedAt          time.Time          `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Donation) TableName() string { return "donations" }
