package domain

import (
	"context"
	"net/http"
)

// PaymentAdapter authenticates and decodes a gateway's notifications.
type PaymentAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Notification, error)
}

// SnapRequest is what the checkout gateway needs to open a payment page.
type SnapRequest struct {
	OrderID     string
	GrossAmount int64
	ItemName    string
	ItemID      string
	DonorName   string
	DonorEmail  string
}

type SnapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// CheckoutClient creates hosted payment sessions.
type CheckoutClient interface {
	CreateTransaction(ctx context.Context, req SnapRequest) (*SnapResponse, error)
}
