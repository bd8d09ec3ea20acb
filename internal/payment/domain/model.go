package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord journals every authenticated gateway notification.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	OrderID         string         `json:"order_id" gorm:"type:text;not null;index"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:json;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// Outcome is the donation transition a notification maps to.
type Outcome string

const (
	OutcomeVerified Outcome = "verified"
	OutcomePending  Outcome = "pending"
	OutcomeFailed   Outcome = "failed"
	OutcomeIgnored  Outcome = "ignored"
)

// Notification is the canonical payment notification parsed by adapters.
type Notification struct {
	Provider          string
	ProviderEventID   string
	OrderID           string
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
	PaymentType       string
	GrossAmount       int64
	Outcome           Outcome
	OccurredAt        time.Time
	RawPayload        []byte
}

// EventType names the journal entry for a notification.
func (n Notification) EventType() string {
	if n.FraudStatus != "" {
		return n.TransactionStatus + "/" + n.FraudStatus
	}
	return n.TransactionStatus
}

// Ack is returned to the gateway for every accepted notification.
type Ack struct {
	OrderID   string  `json:"order_id"`
	Outcome   Outcome `json:"outcome"`
	Duplicate bool    `json:"duplicate"`
	// Conflict is set when the notification contradicts a final donation (a settlement for
	// an expired or failed donation). Nothing is changed and the case needs reconciliation.
	Conflict bool `json:"conflict,omitempty"`
}
