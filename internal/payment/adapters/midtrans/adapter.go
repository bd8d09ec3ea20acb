package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
)

const Provider = "midtrans"

const (
	statusCapture    = "capture"
	statusSettlement = "settlement"
	statusPending    = "pending"
	statusCancel     = "cancel"
	statusDeny       = "deny"
	statusExpire     = "expire"

	fraudAccept    = "accept"
	fraudChallenge = "challenge"
)

// Midtrans sends transaction_time in Asia/Jakarta without an offset.
var jakarta = time.FixedZone("WIB", 7*60*60)

type notification struct {
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	TransactionTime   string `json:"transaction_time"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

// Adapter verifies and decodes Midtrans HTTP notifications.
type Adapter struct {
	serverKey string
}

func NewAdapter(serverKey string) *Adapter {
	return &Adapter{serverKey: strings.TrimSpace(serverKey)}
}

func (a *Adapter) Provider() string { return Provider }

// Verify recomputes SHA512(order_id + transaction_status + gross_amount + server_key) and
// compares it with signature_key in constant time.
func (a *Adapter) Verify(_ context.Context, payload []byte, _ http.Header) error {
	if a.serverKey == "" {
		return paymentdomain.ErrInvalidConfig
	}
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	if n.OrderID == "" || n.SignatureKey == "" {
		return paymentdomain.ErrInvalidSignature
	}

	expected := Signature(n.OrderID, n.TransactionStatus, n.GrossAmount, a.serverKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) != 1 {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(_ context.Context, payload []byte) (*paymentdomain.Notification, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	orderID := strings.TrimSpace(n.OrderID)
	status := strings.ToLower(strings.TrimSpace(n.TransactionStatus))
	if orderID == "" || status == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	amount, err := parseGrossAmount(n.GrossAmount)
	if err != nil {
		return nil, err
	}

	fraud := strings.ToLower(strings.TrimSpace(n.FraudStatus))
	transactionID := strings.TrimSpace(n.TransactionID)
	eventID := orderID
	if transactionID != "" {
		eventID = transactionID
	}
	eventID += ":" + status
	if fraud != "" {
		eventID += ":" + fraud
	}

	return &paymentdomain.Notification{
		Provider:          Provider,
		ProviderEventID:   eventID,
		OrderID:           orderID,
		TransactionID:     transactionID,
		TransactionStatus: status,
		FraudStatus:       fraud,
		PaymentType:       strings.TrimSpace(n.PaymentType),
		GrossAmount:       amount,
		Outcome:           MapStatus(status, fraud),
		OccurredAt:        parseTransactionTime(n.TransactionTime),
		RawPayload:        payload,
	}, nil
}

// MapStatus translates a Midtrans transaction status into a donation outcome.
func MapStatus(transactionStatus, fraudStatus string) paymentdomain.Outcome {
	switch transactionStatus {
	case statusCapture:
		switch fraudStatus {
		case fraudChallenge:
			return paymentdomain.OutcomePending
		case fraudAccept, "":
			return paymentdomain.OutcomeVerified
		default:
			return paymentdomain.OutcomeIgnored
		}
	case statusSettlement:
		return paymentdomain.OutcomeVerified
	case statusCancel, statusDeny, statusExpire:
		return paymentdomain.OutcomeFailed
	case statusPending:
		return paymentdomain.OutcomePending
	default:
		return paymentdomain.OutcomeIgnored
	}
}

// Signature returns the lowercase hex SHA-512 Midtrans expects in signature_key.
func Signature(orderID, transactionStatus, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + transactionStatus + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// parseGrossAmount accepts "100000.00" and rejects fractional rupiah.
func parseGrossAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, paymentdomain.ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, paymentdomain.ErrInvalidAmount
	}
	if amount.Sign() <= 0 || !amount.Equal(amount.Truncate(0)) {
		return 0, paymentdomain.ErrInvalidAmount
	}
	return amount.IntPart(), nil
}

func parseTransactionTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", raw, jakarta)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
