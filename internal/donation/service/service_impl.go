package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"github.com/smallbiznis/donasi/internal/clock"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	"github.com/smallbiznis/donasi/internal/events"
	funddomain "github.com/smallbiznis/donasi/internal/fund/domain"
	"github.com/smallbiznis/donasi/internal/observability/logger"
	"github.com/smallbiznis/donasi/internal/observability/metrics"
	"github.com/smallbiznis/donasi/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      donationdomain.Repository
	causeRepo causedomain.Repository
	fund      funddomain.Updater
	outbox    *events.Outbox
	auditSvc  auditdomain.Service
	metrics   *metrics.DonationMetrics
	clock     clock.Clock
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      donationdomain.Repository
	CauseRepo causedomain.Repository
	Fund      funddomain.Updater
	Outbox    *events.Outbox           `optional:"true"`
	AuditSvc  auditdomain.Service      `optional:"true"`
	Metrics   *metrics.DonationMetrics `optional:"true"`
	Clock     clock.Clock              `optional:"true"`
}

func NewService(p ServiceParam) donationdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("donation.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		causeRepo: p.CauseRepo,
		fund:      p.Fund,
		outbox:    p.Outbox,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
		clock:     clk,
	}
}

func (s *Service) Create(ctx context.Context, req donationdomain.CreateRequest) (*donationdomain.Donation, error) {
	if req.Amount < donationdomain.MinAmount {
		return nil, donationdomain.ErrInvalidAmount
	}
	message := strings.TrimSpace(req.Message)
	if len([]rune(message)) > donationdomain.MaxMessageLength {
		return nil, donationdomain.ErrMessageTooLong
	}

	cause, err := s.causeRepo.FindByID(ctx, s.db, req.CauseID)
	if err != nil {
		return nil, err
	}
	if cause == nil {
		return nil, donationdomain.ErrCauseNotFound
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	donation := &donationdomain.Donation{
		ID:                 id,
		OrderID:            donationdomain.OrderIDFor(id),
		DonorID:            req.DonorID,
		CauseID:            req.CauseID,
		Amount:             req.Amount,
		IsAnonymous:        req.IsAnonymous,
		Message:            message,
		Status:             donationdomain.StatusPending,
		DistributionStatus: donationdomain.DistributionPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Insert(ctx, s.db, donation); err != nil {
		return nil, err
	}

	s.metrics.DonationCreated()
	s.writeAuditLog(ctx, &req.DonorID, auditdomain.ActionDonationCreated, donation, map[string]any{
		"amount":   donation.Amount,
		"cause_id": donation.CauseID.String(),
	})
	return donation, nil
}

func (s *Service) AttachPaymentToken(ctx context.Context, id snowflake.ID, token, redirectURL string) error {
	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return donationdomain.ErrNotFound
	}
	return s.repo.UpdateFields(ctx, s.db, id, map[string]any{
		"payment_token": optionalString(token),
		"redirect_url":  optionalString(redirectURL),
		"updated_at":    s.clock.Now(),
	})
}

func (s *Service) MarkVerified(ctx context.Context, id snowflake.ID, actorID *snowflake.ID) (*donationdomain.Donation, error) {
	return s.markVerified(ctx, func(tx *gorm.DB) (*donationdomain.Donation, error) {
		return s.repo.FindByID(ctx, tx, id)
	}, actorID)
}

func (s *Service) MarkVerifiedByOrderID(ctx context.Context, orderID string, actorID *snowflake.ID) (*donationdomain.Donation, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, donationdomain.ErrInvalidOrderID
	}
	return s.markVerified(ctx, func(tx *gorm.DB) (*donationdomain.Donation, error) {
		return s.repo.FindByOrderID(ctx, tx, orderID)
	}, actorID)
}

// markVerified performs pending -> verified and the cause increment in one transaction.
// The compare-and-set on status is the only gate: a caller that loses the race sees
// ErrAlreadyVerified and nothing it did is committed.
func (s *Service) markVerified(
	ctx context.Context,
	load func(tx *gorm.DB) (*donationdomain.Donation, error),
	actorID *snowflake.ID,
) (*donationdomain.Donation, error) {
	ctx, span := tracing.Start(ctx, "donation.mark_verified")
	var verified *donationdomain.Donation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		donation, err := load(tx)
		if err != nil {
			return err
		}
		if donation == nil {
			return donationdomain.ErrNotFound
		}
		switch donation.Status {
		case donationdomain.StatusVerified:
			return donationdomain.ErrAlreadyVerified
		case donationdomain.StatusFailed, donationdomain.StatusExpired:
			return donationdomain.ErrInvalidTransition
		}

		now := s.clock.Now()
		fields := map[string]any{
			"verified_at": now,
			"updated_at":  now,
		}
		if actorID != nil {
			fields["verified_by"] = *actorID
		}
		ok, err := s.repo.CompareAndSetStatus(ctx, tx, donation.ID, donationdomain.StatusPending, donationdomain.StatusVerified, fields)
		if err != nil {
			return err
		}
		if !ok {
			current, err := s.repo.FindByID(ctx, tx, donation.ID)
			if err != nil {
				return err
			}
			if current != nil && current.Status == donationdomain.StatusVerified {
				return donationdomain.ErrAlreadyVerified
			}
			return donationdomain.ErrInvalidTransition
		}

		if err := s.fund.ApplyVerifiedDonation(ctx, tx, donation.CauseID, donation.Amount); err != nil {
			if errors.Is(err, funddomain.ErrCauseNotFound) {
				return donationdomain.ErrCauseNotFound
			}
			return err
		}

		if s.outbox != nil {
			payload := events.DonationPayload{
				DonationID: donation.ID.String(),
				OrderID:    donation.OrderID,
				CauseID:    donation.CauseID.String(),
				Amount:     donation.Amount,
			}
			if actorID != nil {
				payload.VerifiedBy = actorID.String()
			}
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type:      events.EventDonationVerified,
				Payload:   payload.ToMap(),
				DedupeKey: events.EventDonationVerified + ":" + donation.ID.String(),
			}); err != nil {
				return err
			}
		}

		donation.Status = donationdomain.StatusVerified
		donation.VerifiedAt = &now
		donation.VerifiedBy = actorID
		donation.UpdatedAt = now
		verified = donation
		return nil
	})
	tracing.End(span, err)
	if err != nil {
		return nil, err
	}

	source := "webhook"
	if actorID != nil {
		source = "admin"
	}
	s.metrics.DonationVerified(source, verified.Amount)
	logger.With(s.log, ctx).Info("donation verified",
		zap.String("donation_id", verified.ID.String()),
		zap.String("order_id", verified.OrderID),
		zap.String("cause_id", verified.CauseID.String()),
		zap.Int64("amount", verified.Amount),
		zap.String("source", source),
	)
	s.writeAuditLog(ctx, actorID, auditdomain.ActionDonationVerified, verified, map[string]any{
		"status":   map[string]any{"from": donationdomain.StatusPending, "to": donationdomain.StatusVerified},
		"amount":   verified.Amount,
		"cause_id": verified.CauseID.String(),
	})
	return verified, nil
}

func (s *Service) MarkFailed(ctx context.Context, id snowflake.ID) (*donationdomain.Donation, error) {
	return s.finalize(ctx, id, donationdomain.StatusFailed, events.EventDonationFailed)
}

func (s *Service) MarkExpired(ctx context.Context, id snowflake.ID) (*donationdomain.Donation, error) {
	return s.finalize(ctx, id, donationdomain.StatusExpired, events.EventDonationExpired)
}

// finalize moves a pending donation to a terminal non-verified status. It never touches
// the cause.
func (s *Service) finalize(ctx context.Context, id snowflake.ID, to donationdomain.Status, eventType string) (*donationdomain.Donation, error) {
	var finalized *donationdomain.Donation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.CompareAndSetStatus(ctx, tx, id, donationdomain.StatusPending, to, map[string]any{
			"updated_at": s.clock.Now(),
		})
		if err != nil {
			return err
		}

		current, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return donationdomain.ErrNotFound
		}
		if !ok {
			switch current.Status {
			case to:
				return donationdomain.ErrAlreadyFinalized
			case donationdomain.StatusVerified:
				return donationdomain.ErrAlreadyVerified
			default:
				return donationdomain.ErrInvalidTransition
			}
		}

		if s.outbox != nil {
			if err := s.outbox.PublishTx(ctx, tx, events.Event{
				Type: eventType,
				Payload: events.DonationPayload{
					DonationID: current.ID.String(),
					OrderID:    current.OrderID,
					CauseID:    current.CauseID.String(),
					Amount:     current.Amount,
				}.ToMap(),
				DedupeKey: eventType + ":" + current.ID.String(),
			}); err != nil {
				return err
			}
		}
		finalized = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeAuditLog(ctx, nil, auditdomain.ActionDonationStatusChanged, finalized, map[string]any{
		"status": map[string]any{"from": donationdomain.StatusPending, "to": to},
	})
	return finalized, nil
}

func (s *Service) RecordPayment(ctx context.Context, orderID string, info donationdomain.PaymentInfo) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return donationdomain.ErrInvalidOrderID
	}

	fields := map[string]any{}
	if method := strings.TrimSpace(info.Method); method != "" {
		fields["payment_method"] = method
	}
	if txID := strings.TrimSpace(info.TransactionID); txID != "" {
		fields["transaction_id"] = txID
	}
	if len(info.Payload) > 0 && json.Valid(info.Payload) {
		fields["payment_data"] = datatypes.JSON(info.Payload)
	}
	if len(fields) == 0 {
		return nil
	}

	ok, err := s.repo.UpdatePaymentByOrderID(ctx, s.db, orderID, fields, s.clock.Now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// Only pending donations take gateway data; a final donation keeps what it settled with.
	current, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return err
	}
	if current == nil {
		return donationdomain.ErrNotFound
	}
	s.log.Debug("payment data ignored for final donation",
		zap.String("order_id", orderID),
		zap.String("status", string(current.Status)),
	)
	return nil
}

func (s *Service) UpdateDistribution(ctx context.Context, id snowflake.ID, req donationdomain.DistributionRequest) (*donationdomain.Donation, error) {
	if !donationdomain.IsValidDistributionStatus(req.Status) {
		return nil, donationdomain.ErrInvalidDistribution
	}
	note := strings.TrimSpace(req.Note)
	if len([]rune(note)) > donationdomain.MaxDistributionNoteLen {
		return nil, donationdomain.ErrNoteTooLong
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, donationdomain.ErrNotFound
	}
	if existing.Status != donationdomain.StatusVerified {
		return nil, donationdomain.ErrNotVerified
	}
	if req.Status == donationdomain.DistributionPending && existing.DistributionStatus != donationdomain.DistributionPending {
		return nil, donationdomain.ErrInvalidTransition
	}

	now := s.clock.Now()
	fields := map[string]any{
		"distribution_status": req.Status,
		"updated_at":          now,
	}
	if note != "" {
		fields["distribution_note"] = note
	}
	if req.Proof != nil {
		proof := make([]string, 0, len(req.Proof))
		for _, ref := range req.Proof {
			if ref = strings.TrimSpace(ref); ref != "" {
				proof = append(proof, ref)
			}
		}
		encoded, err := json.Marshal(proof)
		if err != nil {
			return nil, err
		}
		fields["distribution_proof"] = datatypes.JSON(encoded)
	}
	if req.Status != donationdomain.DistributionPending && existing.DistributedAt == nil {
		fields["distributed_at"] = now
	}

	if err := s.repo.UpdateFields(ctx, s.db, id, fields); err != nil {
		return nil, err
	}
	updated, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, donationdomain.ErrNotFound
	}

	s.writeAuditLog(ctx, nil, auditdomain.ActionDonationDistributed, updated, map[string]any{
		"distribution_status": map[string]any{"from": existing.DistributionStatus, "to": req.Status},
	})
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*donationdomain.Donation, error) {
	donation, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if donation == nil {
		return nil, donationdomain.ErrNotFound
	}
	return donation, nil
}

func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*donationdomain.Donation, error) {
	donation, err := s.repo.FindByOrderID(ctx, s.db, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	if donation == nil {
		return nil, donationdomain.ErrNotFound
	}
	return donation, nil
}

func (s *Service) ListByDonor(ctx context.Context, donorID snowflake.ID, limit, offset int) (donationdomain.ListResult, error) {
	return s.List(ctx, donationdomain.ListFilter{DonorID: donorID, Limit: limit, Offset: offset})
}

func (s *Service) List(ctx context.Context, filter donationdomain.ListFilter) (donationdomain.ListResult, error) {
	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return donationdomain.ListResult{}, err
	}
	if items == nil {
		items = []donationdomain.Donation{}
	}
	return donationdomain.ListResult{Items: items, Total: total}, nil
}

func (s *Service) writeAuditLog(
	ctx context.Context,
	actorID *snowflake.ID,
	action auditdomain.Action,
	donation *donationdomain.Donation,
	changes map[string]any,
) {
	if s.auditSvc == nil || donation == nil {
		return
	}
	var actor *string
	if actorID != nil && *actorID != 0 {
		value := actorID.String()
		actor = &value
	}
	target := donation.ID.String()
	metadata := map[string]any{"order_id": donation.OrderID}
	if err := s.auditSvc.AuditLog(ctx, actor, action, auditdomain.TargetDonation, &target, changes, metadata); err != nil {
		s.log.Warn("failed to write donation audit log",
			zap.String("donation_id", target),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
