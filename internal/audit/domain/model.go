package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActorType represents who triggered an action.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// Action names an auditable operation.
type Action string

const (
	ActionCauseCreated              Action = "cause_created"
	ActionCauseUpdated              Action = "cause_updated"
	ActionCauseDeleted              Action = "cause_deleted"
	ActionCauseStatusChanged        Action = "cause_status_changed"
	ActionDonationCreated           Action = "donation_created"
	ActionDonationVerified          Action = "donation_verified"
	ActionDonationStatusChanged     Action = "donation_status_changed"
	ActionDonationDistributed       Action = "donation_distributed"
	ActionAuditReportVerified       Action = "audit_report_verified"
	ActionAuditReportFlagged        Action = "audit_report_flagged"
	ActionTransparencyReportCreated Action = "transparency_report_created"
	ActionTransparencyReportUpdated Action = "transparency_report_updated"
	ActionTransparencyReportDeleted Action = "transparency_report_deleted"
)

// Target types.
const (
	TargetUser               = "User"
	TargetCause              = "Cause"
	TargetDonation           = "Donation"
	TargetTransparencyReport = "TransparencyReport"
)

// AuditLog captures an immutable record of an administrative or financial action.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  string            `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text;index:ix_audit_logs_actor_created,priority:1"`
	Action     string            `json:"action" gorm:"type:text;not null;index:ix_audit_logs_action_created,priority:1"`
	TargetType string            `json:"target_type" gorm:"type:text;not null;index:ix_audit_logs_target,priority:1"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:text;index:ix_audit_logs_target,priority:2"`
	Changes    datatypes.JSONMap `json:"changes" gorm:"type:json"`
	Metadata   datatypes.JSONMap `json:"metadata" gorm:"type:json"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"type:text"`
	UserAgent  *string           `json:"user_agent,omitempty" gorm:"type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index:ix_audit_logs_actor_created,priority:2;index:ix_audit_logs_action_created,priority:2"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
