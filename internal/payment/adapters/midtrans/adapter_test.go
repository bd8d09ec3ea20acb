package midtrans

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
)

const testServerKey = "SB-Mid-server-test"

func signedNotification(t *testing.T, fields map[string]string) []byte {
	t.Helper()
	fields["signature_key"] = Signature(fields["order_id"], fields["transaction_status"], fields["gross_amount"], testServerKey)
	payload, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	adapter := NewAdapter(testServerKey)
	payload := signedNotification(t, map[string]string{
		"order_id":           "DONATION-1",
		"transaction_status": "settlement",
		"gross_amount":       "100000.00",
	})
	if err := adapter.Verify(context.Background(), payload, nil); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	adapter := NewAdapter(testServerKey)
	payload := signedNotification(t, map[string]string{
		"order_id":           "DONATION-1",
		"transaction_status": "pending",
		"gross_amount":       "100000.00",
	})

	var fields map[string]string
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fields["transaction_status"] = "settlement"
	tampered, _ := json.Marshal(fields)

	if err := adapter.Verify(context.Background(), tampered, nil); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	fields["signature_key"] = ""
	unsigned, _ := json.Marshal(fields)
	if err := adapter.Verify(context.Background(), unsigned, nil); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for missing signature, got %v", err)
	}
}

func TestVerifyRequiresServerKey(t *testing.T) {
	adapter := NewAdapter(" ")
	if err := adapter.Verify(context.Background(), []byte(`{}`), nil); !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		status string
		fraud  string
		want   paymentdomain.Outcome
	}{
		{"capture", "accept", paymentdomain.OutcomeVerified},
		{"capture", "", paymentdomain.OutcomeVerified},
		{"capture", "challenge", paymentdomain.OutcomePending},
		{"capture", "deny", paymentdomain.OutcomeIgnored},
		{"settlement", "", paymentdomain.OutcomeVerified},
		{"pending", "", paymentdomain.OutcomePending},
		{"cancel", "", paymentdomain.OutcomeFailed},
		{"deny", "", paymentdomain.OutcomeFailed},
		{"expire", "", paymentdomain.OutcomeFailed},
		{"refund", "", paymentdomain.OutcomeIgnored},
	}
	for _, tc := range cases {
		if got := MapStatus(tc.status, tc.fraud); got != tc.want {
			t.Fatalf("MapStatus(%q, %q): expected %s, got %s", tc.status, tc.fraud, tc.want, got)
		}
	}
}

func TestParseNotification(t *testing.T) {
	adapter := NewAdapter(testServerKey)
	payload := signedNotification(t, map[string]string{
		"order_id":           "DONATION-1",
		"transaction_id":     "9aed5972",
		"transaction_status": "capture",
		"fraud_status":       "accept",
		"gross_amount":       "100000.00",
		"payment_type":       "credit_card",
		"transaction_time":   "2025-03-01 15:00:00",
	})

	n, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.GrossAmount != 100_000 {
		t.Fatalf("expected 100000, got %d", n.GrossAmount)
	}
	if n.ProviderEventID != "9aed5972:capture:accept" {
		t.Fatalf("unexpected event id %q", n.ProviderEventID)
	}
	if n.Outcome != paymentdomain.OutcomeVerified {
		t.Fatalf("expected verified, got %s", n.Outcome)
	}
	if want := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC); !n.OccurredAt.Equal(want) {
		t.Fatalf("expected %s, got %s", want, n.OccurredAt)
	}
}

func TestParseGrossAmount(t *testing.T) {
	cases := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"100000.00", 100_000, false},
		{"2500", 2500, false},
		{"1000.50", 0, true},
		{"0.00", 0, true},
		{"-1000", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := parseGrossAmount(tc.raw)
		if tc.wantErr {
			if !errors.Is(err, paymentdomain.ErrInvalidAmount) {
				t.Fatalf("parseGrossAmount(%q): expected ErrInvalidAmount, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("parseGrossAmount(%q): expected %d, got %d (%v)", tc.raw, tc.want, got, err)
		}
	}
}
