package events

// Donation event types written to the outbox.
const (
	EventDonationVerified      = "donation.verified"
	EventDonationFailed        = "donation.failed"
	EventDonationExpired       = "donation.expired"
	EventDisbursementApplied   = "disbursement.applied"
	EventDisbursementRetracted = "disbursement.retracted"
)

// DonationPayload captures the minimal data needed to react to a donation transition.
type DonationPayload struct {
	DonationID string `json:"donation_id"`
	OrderID    string `json:"order_id"`
	CauseID    string `json:"cause_id"`
	Amount     int64  `json:"amount"`
	VerifiedBy string `json:"verified_by,omitempty"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p DonationPayload) ToMap() map[string]any {
	payload := map[string]any{
		"donation_id": p.DonationID,
		"order_id":    p.OrderID,
		"cause_id":    p.CauseID,
		"amount":      p.Amount,
	}
	if p.VerifiedBy != "" {
		payload["verified_by"] = p.VerifiedBy
	}
	return payload
}

// DisbursementPayload describes a change to a cause's disbursed amount.
type DisbursementPayload struct {
	CauseID  string `json:"cause_id"`
	ReportID string `json:"report_id"`
	Delta    int64  `json:"delta"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p DisbursementPayload) ToMap() map[string]any {
	return map[string]any{
		"cause_id":  p.CauseID,
		"report_id": p.ReportID,
		"delta":     p.Delta,
	}
}
