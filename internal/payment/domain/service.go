package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (Ack, error)
	// Journal returns the notifications received for an order, oldest first.
	Journal(ctx context.Context, orderID string) ([]JournalEntry, error)
}

// JournalEntry is a received gateway notification with credentials and donor contact
// fields masked.
type JournalEntry struct {
	ID              string         `json:"id"`
	Provider        string         `json:"provider"`
	ProviderEventID string         `json:"provider_event_id"`
	EventType       string         `json:"event_type"`
	Payload         map[string]any `json:"payload"`
	ReceivedAt      time.Time      `json:"received_at"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

var (
	ErrInvalidProvider  = errors.New("invalid_provider")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidConfig    = errors.New("invalid_config")
	ErrDonationNotFound = errors.New("donation_not_found")
	ErrGatewayRequest   = errors.New("gateway_request_failed")
)
