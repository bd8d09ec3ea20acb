package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	causerepository "github.com/smallbiznis/donasi/internal/cause/repository"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	"github.com/smallbiznis/donasi/internal/db"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	donationrepository "github.com/smallbiznis/donasi/internal/donation/repository"
	donationservice "github.com/smallbiznis/donasi/internal/donation/service"
	"github.com/smallbiznis/donasi/internal/events"
	fundservice "github.com/smallbiznis/donasi/internal/fund/service"
	"github.com/smallbiznis/donasi/internal/migration"
	"github.com/smallbiznis/donasi/internal/observability/metrics"
	"github.com/smallbiznis/donasi/internal/payment/adapters"
	"github.com/smallbiznis/donasi/internal/payment/adapters/midtrans"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
	"github.com/smallbiznis/donasi/internal/payment/repository"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

const testServerKey = "SB-Mid-server-test"

var fixedNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	db        *gorm.DB
	svc       paymentdomain.Service
	donations donationdomain.Service
	repo      paymentdomain.Repository
	cause     snowflake.ID
}

func TestIngestSettlementVerifiesDonation(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()
	donation := createDonation(t, env, 100_000)

	ack, err := env.svc.IngestWebhook(ctx, "midtrans", notification(t, donation.OrderID, "settlement", "", "100000.00"), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ack.Outcome != paymentdomain.OutcomeVerified || ack.Duplicate {
		t.Fatalf("unexpected ack %+v", ack)
	}
	assertDonationStatus(t, env, donation.ID, donationdomain.StatusVerified)
	assertCauseCurrent(t, env, 100_000, 1)

	journal, err := env.svc.Journal(ctx, donation.OrderID)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(journal) != 1 || journal[0].ProcessedAt == nil {
		t.Fatalf("expected one processed journal entry, got %+v", journal)
	}
	if journal[0].EventType != "settlement" || journal[0].Provider != "midtrans" {
		t.Fatalf("unexpected journal entry %+v", journal[0])
	}
}

func TestJournalMasksGatewaySecrets(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()
	donation := createDonation(t, env, 100_000)
	payload := notification(t, donation.OrderID, "settlement", "", "100000.00")

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if _, err := env.svc.IngestWebhook(ctx, "midtrans", payload, nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	journal, err := env.svc.Journal(ctx, donation.OrderID)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(journal) != 1 {
		t.Fatalf("expected one journal entry, got %d", len(journal))
	}
	if got := journal[0].Payload["signature_key"]; got == raw["signature_key"] {
		t.Fatalf("expected signature_key masked, got %v", got)
	}
	if journal[0].Payload["order_id"] != donation.OrderID {
		t.Fatalf("expected order_id kept, got %v", journal[0].Payload["order_id"])
	}

	if _, err := env.svc.Journal(ctx, "  "); !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for blank order id, got %v", err)
	}
	empty, err := env.svc.Journal(ctx, "DONATION-unknown")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty journal for unknown order, got %d (%v)", len(empty), err)
	}
}

func TestIngestDuplicateSettlementIsAcknowledged(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()
	donation := createDonation(t, env, 100_000)
	payload := notification(t, donation.OrderID, "settlement", "", "100000.00")

	if _, err := env.svc.IngestWebhook(ctx, "midtrans", payload, nil); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	ack, err := env.svc.IngestWebhook(ctx, "midtrans", payload, nil)
	if err != nil {
		t.Fatalf("replay ingest: %v", err)
	}
	if !ack.Duplicate {
		t.Fatalf("expected duplicate ack, got %+v", ack)
	}

	capture := notification(t, donation.OrderID, "capture", "accept", "100000.00")
	ack, err = env.svc.IngestWebhook(ctx, "midtrans", capture, nil)
	if err != nil {
		t.Fatalf("capture ingest: %v", err)
	}
	if !ack.Duplicate {
		t.Fatalf("expected capture after settlement to be a duplicate, got %+v", ack)
	}
	assertCauseCurrent(t, env, 100_000, 1)
}

func TestIngestConcurrentSettlementsApplyOnce(t *testing.T) {
	env := setupPaymentTest(t)
	donation := createDonation(t, env, 100_000)
	settlement := notification(t, donation.OrderID, "settlement", "", "100000.00")
	capture := notification(t, donation.OrderID, "capture", "accept", "100000.00")

	const callers = 6
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		fresh      int
		duplicates int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := settlement
			if i%2 == 1 {
				payload = capture
			}
			ack, err := env.svc.IngestWebhook(context.Background(), "midtrans", payload, nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				t.Errorf("ingest: %v", err)
				return
			}
			if ack.Duplicate {
				duplicates++
			} else {
				fresh++
			}
		}(i)
	}
	wg.Wait()

	if fresh != 1 || duplicates != callers-1 {
		t.Fatalf("expected 1 fresh ack and %d duplicates, got %d and %d", callers-1, fresh, duplicates)
	}
	assertCauseCurrent(t, env, 100_000, 1)
}

func TestIngestInvalidSignatureMutatesNothing(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()
	donation := createDonation(t, env, 100_000)

	var fields map[string]string
	if err := json.Unmarshal(notification(t, donation.OrderID, "pending", "", "100000.00"), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fields["transaction_status"] = "settlement"
	forged, _ := json.Marshal(fields)

	if _, err := env.svc.IngestWebhook(ctx, "midtrans", forged, nil); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	assertDonationStatus(t, env, donation.ID, donationdomain.StatusPending)
	assertCauseCurrent(t, env, 0, 0)
	assertJournalSize(t, env, donation.OrderID, 0)
}

func TestIngestChallengeStaysPending(t *testing.T) {
	env := setupPaymentTest(t)
	donation := createDonation(t, env, 100_000)

	ack, err := env.svc.IngestWebhook(context.Background(), "midtrans", notification(t, donation.OrderID, "capture", "challenge", "100000.00"), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ack.Outcome != paymentdomain.OutcomePending {
		t.Fatalf("expected pending outcome, got %s", ack.Outcome)
	}
	assertDonationStatus(t, env, donation.ID, donationdomain.StatusPending)
	assertCauseCurrent(t, env, 0, 0)

	stored, err := env.donations.GetByID(context.Background(), donation.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.PaymentMethod == nil || *stored.PaymentMethod != "credit_card" {
		t.Fatalf("expected payment method recorded, got %v", stored.PaymentMethod)
	}
}

func TestIngestFailureAfterVerificationIsIgnored(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()
	donation := createDonation(t, env, 100_000)

	if _, err := env.svc.IngestWebhook(ctx, "midtrans", notification(t, donation.OrderID, "settlement", "", "100000.00"), nil); err != nil {
		t.Fatalf("settle: %v", err)
	}
	ack, err := env.svc.IngestWebhook(ctx, "midtrans", notification(t, donation.OrderID, "expire", "", "100000.00"), nil)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if !ack.Duplicate {
		t.Fatalf("expected late failure to be acknowledged as duplicate, got %+v", ack)
	}
	assertDonationStatus(t, env, donation.ID, donationdomain.StatusVerified)
	assertCauseCurrent(t, env, 100_000, 1)
}

func TestIngestSettlementAfterExpiryIsConflict(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	registry := prometheus.NewRegistry()
	env := setupPaymentTestWith(t, zap.New(core), metrics.NewDonationMetrics(registry, metrics.Config{}))
	ctx := context.Background()
	donation := createDonation(t, env, 100_000)

	if _, err := env.donations.MarkExpired(ctx, donation.ID); err != nil {
		t.Fatalf("expire: %v", err)
	}

	ack, err := env.svc.IngestWebhook(ctx, "midtrans", notification(t, donation.OrderID, "settlement", "", "100000.00"), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !ack.Conflict || ack.Duplicate {
		t.Fatalf("expected conflict ack, got %+v", ack)
	}
	assertDonationStatus(t, env, donation.ID, donationdomain.StatusExpired)
	assertCauseCurrent(t, env, 0, 0)

	stored, err := env.donations.GetByID(ctx, donation.ID)
	if err != nil {
		t.Fatalf("get donation: %v", err)
	}
	if stored.PaymentMethod != nil {
		t.Fatalf("expected no payment data on expired donation, got %v", *stored.PaymentMethod)
	}
	if logs.FilterMessage("payment webhook contradicts final donation status").Len() != 1 {
		t.Fatalf("expected one error log for the conflict, got %d", logs.Len())
	}
	count, err := testutil.GatherAndCount(registry, "donasi_payment_webhook_conflicts_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one conflict series, got %d", count)
	}
	assertJournalSize(t, env, donation.OrderID, 1)
}

func TestIngestDenyFailsDonation(t *testing.T) {
	env := setupPaymentTest(t)
	donation := createDonation(t, env, 100_000)

	ack, err := env.svc.IngestWebhook(context.Background(), "midtrans", notification(t, donation.OrderID, "deny", "", "100000.00"), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ack.Outcome != paymentdomain.OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", ack.Outcome)
	}
	assertDonationStatus(t, env, donation.ID, donationdomain.StatusFailed)
	assertCauseCurrent(t, env, 0, 0)
}

func TestIngestAmountMismatchWritesNothing(t *testing.T) {
	env := setupPaymentTest(t)
	donation := createDonation(t, env, 100_000)

	_, err := env.svc.IngestWebhook(context.Background(), "midtrans", notification(t, donation.OrderID, "settlement", "", "1000.00"), nil)
	if !errors.Is(err, paymentdomain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	assertDonationStatus(t, env, donation.ID, donationdomain.StatusPending)
	assertCauseCurrent(t, env, 0, 0)
	assertJournalSize(t, env, donation.OrderID, 0)
}

func TestIngestRejectsUnknownOrderAndProvider(t *testing.T) {
	env := setupPaymentTest(t)
	ctx := context.Background()

	_, err := env.svc.IngestWebhook(ctx, "midtrans", notification(t, "DONATION-404", "settlement", "", "1000.00"), nil)
	if !errors.Is(err, paymentdomain.ErrDonationNotFound) {
		t.Fatalf("expected ErrDonationNotFound, got %v", err)
	}
	if _, err := env.svc.IngestWebhook(ctx, "xendit", []byte(`{}`), nil); !errors.Is(err, paymentdomain.ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
	if _, err := env.svc.IngestWebhook(ctx, "", []byte(`{}`), nil); !errors.Is(err, paymentdomain.ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
	if _, err := env.svc.IngestWebhook(ctx, "midtrans", []byte(`not-json`), nil); !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func setupPaymentTest(t *testing.T) testEnv {
	t.Helper()
	return setupPaymentTestWith(t, zap.NewNop(), nil)
}

func setupPaymentTestWith(t *testing.T, log *zap.Logger, donationMetrics *metrics.DonationMetrics) testEnv {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "payment.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.RunMigrations(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	cause := causedomain.Cause{
		ID:           node.Generate(),
		Title:        "Sumur bersih",
		Description:  "Pembangunan sumur",
		Category:     "infrastruktur",
		TargetAmount: 1_000_000,
		Deadline:     fixedNow.Add(30 * 24 * time.Hour),
		Status:       causedomain.CauseStatusActive,
		CreatedBy:    1,
		AuditStatus:  causedomain.AuditStatusPending,
		CreatedAt:    fixedNow,
		UpdatedAt:    fixedNow,
	}
	if err := conn.Create(&cause).Error; err != nil {
		t.Fatalf("insert cause: %v", err)
	}

	clk := clock.FixedClock{At: fixedNow}
	donations := donationservice.NewService(donationservice.ServiceParam{
		DB:        conn,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      donationrepository.Provide(),
		CauseRepo: causerepository.Provide(),
		Fund:      fundservice.NewService(fundservice.ServiceParam{Log: zap.NewNop()}),
		Outbox:    events.NewOutbox(conn, node, clk),
		Clock:     clk,
	})
	repo := repository.Provide()
	svc := NewService(Params{
		DB:          conn,
		Log:         log,
		Metrics:     donationMetrics,
		GenID:       node,
		DonationSvc: donations,
		Repo:        repo,
		Adapters:    adapters.NewRegistry(midtrans.NewAdapter(testServerKey)),
		Clock:       clk,
	})
	return testEnv{db: conn, svc: svc, donations: donations, repo: repo, cause: cause.ID}
}

func createDonation(t *testing.T, env testEnv, amount int64) *donationdomain.Donation {
	t.Helper()
	donation, err := env.donations.Create(context.Background(), donationdomain.CreateRequest{
		CauseID: env.cause,
		DonorID: 42,
		Amount:  amount,
	})
	if err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return donation
}

func notification(t *testing.T, orderID, status, fraud, grossAmount string) []byte {
	t.Helper()
	fields := map[string]string{
		"order_id":           orderID,
		"transaction_id":     "tx-" + orderID,
		"transaction_status": status,
		"gross_amount":       grossAmount,
		"payment_type":       "credit_card",
		"transaction_time":   "2025-03-01 15:00:00",
		"signature_key":      midtrans.Signature(orderID, status, grossAmount, testServerKey),
	}
	if fraud != "" {
		fields["fraud_status"] = fraud
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return payload
}

func assertDonationStatus(t *testing.T, env testEnv, id snowflake.ID, want donationdomain.Status) {
	t.Helper()
	donation, err := env.donations.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get donation: %v", err)
	}
	if donation.Status != want {
		t.Fatalf("expected donation status %s, got %s", want, donation.Status)
	}
}

func assertCauseCurrent(t *testing.T, env testEnv, current, donors int64) {
	t.Helper()
	var cause causedomain.Cause
	if err := env.db.First(&cause, "id = ?", env.cause).Error; err != nil {
		t.Fatalf("load cause: %v", err)
	}
	if cause.CurrentAmount != current || cause.TotalDonors != donors {
		t.Fatalf("expected current=%d donors=%d, got current=%d donors=%d", current, donors, cause.CurrentAmount, cause.TotalDonors)
	}
}

func assertJournalSize(t *testing.T, env testEnv, orderID string, want int) {
	t.Helper()
	journal, err := env.svc.Journal(context.Background(), orderID)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(journal) != want {
		t.Fatalf("expected %d journal entries, got %d", want, len(journal))
	}
}
