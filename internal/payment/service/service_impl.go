package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donasi/internal/auditcontext"
	"github.com/smallbiznis/donasi/internal/clock"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	"github.com/smallbiznis/donasi/internal/observability/logger"
	"github.com/smallbiznis/donasi/internal/observability/metrics"
	"github.com/smallbiznis/donasi/internal/observability/tracing"
	"github.com/smallbiznis/donasi/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	DonationSvc donationdomain.Service
	Repo        paymentdomain.Repository
	Adapters    *adapters.Registry
	Metrics     *metrics.DonationMetrics `optional:"true"`
	Clock       clock.Clock              `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	donationSvc donationdomain.Service
	repo        paymentdomain.Repository
	adapters    *adapters.Registry
	metrics     *metrics.DonationMetrics
	clock       clock.Clock
}

func NewService(p Params) paymentdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		donationSvc: p.DonationSvc,
		repo:        p.Repo,
		adapters:    p.Adapters,
		metrics:     p.Metrics,
		clock:       clk,
	}
}

// IngestWebhook authenticates a gateway notification and applies the mapped donation
// transition. Replays of a notification whose transition already happened are acknowledged
// with Duplicate set; the donation compare-and-set guarantees they have no effect.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (ack paymentdomain.Ack, err error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	ctx, span := tracing.Start(ctx, "payment.ingest_webhook", attribute.String("payment.provider", provider))
	defer func() {
		span.SetAttributes(
			attribute.Bool("payment.duplicate", ack.Duplicate),
			attribute.Bool("payment.conflict", ack.Conflict),
		)
		tracing.End(span, err)
	}()

	if provider == "" {
		return paymentdomain.Ack{}, paymentdomain.ErrInvalidProvider
	}
	adapter, ok := s.adapters.Adapter(provider)
	if !ok {
		return paymentdomain.Ack{}, paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return paymentdomain.Ack{}, paymentdomain.ErrInvalidPayload
	}

	log := logger.With(s.log, ctx).With(zap.String("provider", provider))

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		if errors.Is(err, paymentdomain.ErrInvalidSignature) {
			s.metrics.SignatureRejected()
			log.Warn("payment webhook rejected", zap.Any("payload", logger.MaskPayload(payload)))
		}
		return paymentdomain.Ack{}, err
	}

	notification, err := adapter.Parse(ctx, payload)
	if err != nil {
		return paymentdomain.Ack{}, err
	}
	log = log.With(
		zap.String("order_id", notification.OrderID),
		zap.String("transaction_status", notification.TransactionStatus),
		zap.String("fraud_status", notification.FraudStatus),
	)

	donation, err := s.donationSvc.GetByOrderID(ctx, notification.OrderID)
	if err != nil {
		if errors.Is(err, donationdomain.ErrNotFound) {
			log.Warn("payment webhook for unknown order")
			return paymentdomain.Ack{}, paymentdomain.ErrDonationNotFound
		}
		return paymentdomain.Ack{}, err
	}
	if notification.GrossAmount != donation.Amount {
		log.Warn("payment webhook amount mismatch",
			zap.Int64("gross_amount", notification.GrossAmount),
			zap.Int64("donation_amount", donation.Amount),
		)
		return paymentdomain.Ack{}, paymentdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	record := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: notification.ProviderEventID,
		OrderID:         notification.OrderID,
		EventType:       notification.EventType(),
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, &record)
	if err != nil {
		return paymentdomain.Ack{}, err
	}
	stored := &record
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, provider, notification.ProviderEventID)
		if err != nil {
			return paymentdomain.Ack{}, err
		}
		if stored == nil {
			return paymentdomain.Ack{}, paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			s.metrics.WebhookDuplicate()
			s.metrics.WebhookReceived(provider, "duplicate")
			log.Info("payment webhook replay acknowledged")
			return paymentdomain.Ack{OrderID: notification.OrderID, Outcome: notification.Outcome, Duplicate: true}, nil
		}
	}

	if err := s.donationSvc.RecordPayment(ctx, notification.OrderID, donationdomain.PaymentInfo{
		Method:        notification.PaymentType,
		TransactionID: notification.TransactionID,
		Payload:       payload,
	}); err != nil {
		return paymentdomain.Ack{}, err
	}

	ctx = auditcontext.WithActor(ctx, "system", "")
	result, err := s.apply(ctx, donation, notification)
	if err != nil {
		return paymentdomain.Ack{}, err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, s.clock.Now()); err != nil {
		return paymentdomain.Ack{}, err
	}

	ack = paymentdomain.Ack{OrderID: notification.OrderID, Outcome: notification.Outcome}
	switch result {
	case applyDuplicate:
		ack.Duplicate = true
		s.metrics.WebhookDuplicate()
		s.metrics.WebhookReceived(provider, "duplicate")
	case applyConflict:
		ack.Conflict = true
		s.metrics.WebhookReceived(provider, "conflict")
	default:
		s.metrics.WebhookReceived(provider, string(notification.Outcome))
	}
	log.Info("payment webhook processed",
		zap.String("outcome", string(notification.Outcome)),
		zap.Bool("duplicate", ack.Duplicate),
		zap.Bool("conflict", ack.Conflict),
	)
	return ack, nil
}

func (s *Service) Journal(ctx context.Context, orderID string) ([]paymentdomain.JournalEntry, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	records, err := s.repo.ListByOrderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	entries := make([]paymentdomain.JournalEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, paymentdomain.JournalEntry{
			ID:              record.ID.String(),
			Provider:        record.Provider,
			ProviderEventID: record.ProviderEventID,
			EventType:       record.EventType,
			Payload:         logger.MaskPayload([]byte(record.Payload)),
			ReceivedAt:      record.ReceivedAt,
			ProcessedAt:     record.ProcessedAt,
		})
	}
	return entries, nil
}

type applyResult int

const (
	applied applyResult = iota
	applyDuplicate
	// applyConflict means the gateway reports an outcome the final donation contradicts,
	// e.g. a settlement for a donation already expired or failed locally.
	applyConflict
)

// apply runs the canonical donation transition for the notification outcome.
func (s *Service) apply(ctx context.Context, donation *donationdomain.Donation, n *paymentdomain.Notification) (applyResult, error) {
	var err error
	switch n.Outcome {
	case paymentdomain.OutcomeVerified:
		_, err = s.donationSvc.MarkVerifiedByOrderID(ctx, n.OrderID, nil)
	case paymentdomain.OutcomeFailed:
		_, err = s.donationSvc.MarkFailed(ctx, donation.ID)
	case paymentdomain.OutcomePending, paymentdomain.OutcomeIgnored:
		return applied, nil
	default:
		return applied, paymentdomain.ErrInvalidEvent
	}

	switch {
	case err == nil:
		return applied, nil
	case errors.Is(err, donationdomain.ErrAlreadyVerified), errors.Is(err, donationdomain.ErrAlreadyFinalized):
		return applyDuplicate, nil
	case errors.Is(err, donationdomain.ErrInvalidTransition):
		current, findErr := s.donationSvc.GetByOrderID(ctx, n.OrderID)
		if findErr != nil {
			return applied, findErr
		}
		if n.Outcome == paymentdomain.OutcomeFailed && current.Status == donationdomain.StatusVerified {
			// A late failure for a settled donation changes nothing.
			return applyDuplicate, nil
		}
		s.metrics.WebhookConflict(string(current.Status), string(n.Outcome))
		logger.With(s.log, ctx).Error("payment webhook contradicts final donation status",
			zap.String("order_id", n.OrderID),
			zap.String("donation_id", current.ID.String()),
			zap.String("status", string(current.Status)),
			zap.String("outcome", string(n.Outcome)),
			zap.Int64("amount", current.Amount),
		)
		return applyConflict, nil
	default:
		return applied, err
	}
}
