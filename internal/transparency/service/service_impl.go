package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/events"
	funddomain "github.com/smallbiznis/donasi/internal/fund/domain"
	"github.com/smallbiznis/donasi/internal/observability/metrics"
	transparencydomain "github.com/smallbiznis/donasi/internal/transparency/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     transparencydomain.Repository
	fund     funddomain.Updater
	outbox   *events.Outbox
	auditSvc auditdomain.Service
	metrics  *metrics.DonationMetrics
	clock    clock.Clock
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     transparencydomain.Repository
	Fund     funddomain.Updater
	Outbox   *events.Outbox           `optional:"true"`
	AuditSvc auditdomain.Service      `optional:"true"`
	Metrics  *metrics.DonationMetrics `optional:"true"`
	Clock    clock.Clock              `optional:"true"`
}

func NewService(p ServiceParam) transparencydomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("transparency.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		fund:     p.Fund,
		outbox:   p.Outbox,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
		clock:    clk,
	}
}

func (s *Service) Create(ctx context.Context, req transparencydomain.CreateRequest) (*transparencydomain.TransparencyReport, error) {
	status := req.Status
	if status == "" {
		status = transparencydomain.StatusDraft
	}
	if !transparencydomain.IsValidStatus(status) {
		return nil, transparencydomain.ErrInvalidStatus
	}
	if req.Amount < 0 {
		return nil, transparencydomain.ErrInvalidAmount
	}
	description := strings.TrimSpace(req.Description)
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	date := req.Date
	if date.IsZero() {
		date = now
	}
	photos, err := s.normalizeAttachments(req.Photos, now)
	if err != nil {
		return nil, err
	}
	documents, err := s.normalizeAttachments(req.Documents, now)
	if err != nil {
		return nil, err
	}

	report := &transparencydomain.TransparencyReport{
		ID:          s.genID.Generate(),
		CauseID:     req.CauseID,
		Amount:      req.Amount,
		Date:        date.UTC(),
		Description: description,
		Photos:      photos,
		Documents:   documents,
		Status:      status,
		CreatedBy:   req.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.fund.Balance(ctx, tx, req.CauseID)
		if err != nil {
			return mapFundError(err)
		}
		// Drafts are checked against the same headroom so publishing later is not a surprise.
		if err := funddomain.ValidateDisbursementDelta(balance.CurrentAmount, balance.DisbursedAmount, req.Amount); err != nil {
			return err
		}
		if err := s.repo.Insert(ctx, tx, report); err != nil {
			return err
		}
		return s.applyDelta(ctx, tx, report, report.Disbursed())
	})
	if err != nil {
		s.observeRejection(err)
		return nil, err
	}

	s.writeAuditLog(ctx, req.ActorID, auditdomain.ActionTransparencyReportCreated, report, map[string]any{
		"amount": report.Amount,
		"status": report.Status,
	})
	return report, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req transparencydomain.UpdateRequest) (*transparencydomain.TransparencyReport, error) {
	if req.Amount != nil && *req.Amount < 0 {
		return nil, transparencydomain.ErrInvalidAmount
	}
	if req.Status != nil && !transparencydomain.IsValidStatus(*req.Status) {
		return nil, transparencydomain.ErrInvalidStatus
	}
	var description string
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
		if err := validateDescription(description); err != nil {
			return nil, err
		}
	}
	if req.Date != nil && req.Date.IsZero() {
		return nil, transparencydomain.ErrInvalidDate
	}

	now := s.clock.Now()
	photos, err := s.normalizeAttachments(req.Photos, now)
	if err != nil {
		return nil, err
	}
	documents, err := s.normalizeAttachments(req.Documents, now)
	if err != nil {
		return nil, err
	}

	var (
		report  *transparencydomain.TransparencyReport
		changes = map[string]any{}
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return transparencydomain.ErrNotFound
		}
		before := existing.Disbursed()
		amountRaised := req.Amount != nil && *req.Amount > existing.Amount

		if req.Amount != nil && *req.Amount != existing.Amount {
			changes["amount"] = map[string]any{"from": existing.Amount, "to": *req.Amount}
			existing.Amount = *req.Amount
		}
		if req.Status != nil && *req.Status != existing.Status {
			changes["status"] = map[string]any{"from": existing.Status, "to": *req.Status}
			existing.Status = *req.Status
		}
		if req.Date != nil {
			existing.Date = req.Date.UTC()
		}
		if req.Description != nil {
			existing.Description = description
		}
		if len(photos) > 0 {
			existing.Photos = append(existing.Photos, photos...)
			changes["photos_added"] = len(photos)
		}
		if len(documents) > 0 {
			existing.Documents = append(existing.Documents, documents...)
			changes["documents_added"] = len(documents)
		}
		updatedBy := req.ActorID
		existing.UpdatedBy = &updatedBy
		existing.UpdatedAt = now

		// A draft holds no disbursement, so a raised amount is checked against headroom here
		// the same way a new draft is.
		if amountRaised && existing.Disbursed() == 0 {
			balance, err := s.fund.Balance(ctx, tx, existing.CauseID)
			if err != nil {
				return mapFundError(err)
			}
			if err := funddomain.ValidateDisbursementDelta(balance.CurrentAmount, balance.DisbursedAmount, existing.Amount); err != nil {
				return err
			}
		}
		if err := s.applyDelta(ctx, tx, existing, existing.Disbursed()-before); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, tx, existing); err != nil {
			return err
		}
		report = existing
		return nil
	})
	if err != nil {
		s.observeRejection(err)
		return nil, err
	}

	s.writeAuditLog(ctx, req.ActorID, auditdomain.ActionTransparencyReportUpdated, report, changes)
	return report, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID, actorID snowflake.ID) error {
	var deleted *transparencydomain.TransparencyReport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return transparencydomain.ErrNotFound
		}
		if err := s.applyDelta(ctx, tx, existing, -existing.Disbursed()); err != nil {
			return err
		}
		ok, err := s.repo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return transparencydomain.ErrNotFound
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return err
	}

	s.writeAuditLog(ctx, actorID, auditdomain.ActionTransparencyReportDeleted, deleted, map[string]any{
		"amount": deleted.Amount,
		"status": deleted.Status,
	})
	return nil
}

func (s *Service) RemoveAttachment(
	ctx context.Context,
	id snowflake.ID,
	kind transparencydomain.AttachmentKind,
	attachmentID string,
	actorID snowflake.ID,
) (*transparencydomain.TransparencyReport, error) {
	if kind != transparencydomain.AttachmentPhoto && kind != transparencydomain.AttachmentDocument {
		return nil, transparencydomain.ErrInvalidAttachmentKind
	}
	attachmentID = strings.TrimSpace(attachmentID)
	if attachmentID == "" {
		return nil, transparencydomain.ErrAttachmentNotFound
	}

	var report *transparencydomain.TransparencyReport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return transparencydomain.ErrNotFound
		}

		list := existing.Photos
		if kind == transparencydomain.AttachmentDocument {
			list = existing.Documents
		}
		kept, removed := removeAttachment(list, attachmentID)
		if !removed {
			return transparencydomain.ErrAttachmentNotFound
		}
		if kind == transparencydomain.AttachmentDocument {
			existing.Documents = kept
		} else {
			existing.Photos = kept
		}

		updatedBy := actorID
		existing.UpdatedBy = &updatedBy
		existing.UpdatedAt = s.clock.Now()
		if err := s.repo.Save(ctx, tx, existing); err != nil {
			return err
		}
		report = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeAuditLog(ctx, actorID, auditdomain.ActionTransparencyReportUpdated, report, map[string]any{
		"attachment_removed": attachmentID,
		"attachment_kind":    kind,
	})
	return report, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*transparencydomain.TransparencyReport, error) {
	report, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, transparencydomain.ErrNotFound
	}
	return report, nil
}

func (s *Service) ListByCause(ctx context.Context, causeID snowflake.ID, includeDrafts bool) (transparencydomain.ListResult, error) {
	if _, err := s.fund.Balance(ctx, s.db, causeID); err != nil {
		return transparencydomain.ListResult{}, mapFundError(err)
	}
	return s.List(ctx, transparencydomain.ListFilter{
		CauseID:       causeID,
		IncludeDrafts: includeDrafts,
		Limit:         500,
	})
}

func (s *Service) List(ctx context.Context, filter transparencydomain.ListFilter) (transparencydomain.ListResult, error) {
	if filter.Status != "" && !transparencydomain.IsValidStatus(filter.Status) {
		return transparencydomain.ListResult{}, transparencydomain.ErrInvalidStatus
	}
	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return transparencydomain.ListResult{}, err
	}
	disbursed, err := s.repo.SumPublished(ctx, s.db, filter)
	if err != nil {
		return transparencydomain.ListResult{}, err
	}
	if items == nil {
		items = []transparencydomain.TransparencyReport{}
	}
	return transparencydomain.ListResult{Items: items, Total: total, TotalDisbursed: disbursed}, nil
}

// applyDelta moves the cause's disbursed amount and records the outbox event in tx.
func (s *Service) applyDelta(ctx context.Context, tx *gorm.DB, report *transparencydomain.TransparencyReport, delta int64) error {
	if delta == 0 {
		return nil
	}
	if err := s.fund.AdjustDisbursement(ctx, tx, report.CauseID, delta); err != nil {
		return mapFundError(err)
	}
	if s.outbox == nil {
		return nil
	}

	eventType := events.EventDisbursementApplied
	if delta < 0 {
		eventType = events.EventDisbursementRetracted
	}
	return s.outbox.PublishTx(ctx, tx, events.Event{
		Type: eventType,
		Payload: events.DisbursementPayload{
			CauseID:  report.CauseID.String(),
			ReportID: report.ID.String(),
			Delta:    delta,
		}.ToMap(),
	})
}

func (s *Service) normalizeAttachments(items []transparencydomain.Attachment, now time.Time) ([]transparencydomain.Attachment, error) {
	if len(items) == 0 {
		return []transparencydomain.Attachment{}, nil
	}
	out := make([]transparencydomain.Attachment, 0, len(items))
	for _, item := range items {
		item.URL = strings.TrimSpace(item.URL)
		if item.URL == "" {
			return nil, transparencydomain.ErrInvalidAttachment
		}
		if strings.TrimSpace(item.ID) == "" {
			item.ID = s.genID.Generate().String()
		}
		if item.UploadedAt.IsZero() {
			item.UploadedAt = now
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) observeRejection(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, funddomain.ErrInsufficientFunds):
		s.metrics.DisbursementRejected("insufficient_funds")
	case errors.Is(err, funddomain.ErrNegativeBalance):
		s.metrics.DisbursementRejected("negative_balance")
	}
}

func (s *Service) writeAuditLog(
	ctx context.Context,
	actorID snowflake.ID,
	action auditdomain.Action,
	report *transparencydomain.TransparencyReport,
	changes map[string]any,
) {
	if s.auditSvc == nil || report == nil {
		return
	}
	var actor *string
	if actorID != 0 {
		value := actorID.String()
		actor = &value
	}
	target := report.ID.String()
	metadata := map[string]any{"cause_id": report.CauseID.String()}
	if err := s.auditSvc.AuditLog(ctx, actor, action, auditdomain.TargetTransparencyReport, &target, changes, metadata); err != nil {
		s.log.Warn("failed to write transparency audit log",
			zap.String("report_id", target),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func mapFundError(err error) error {
	if errors.Is(err, funddomain.ErrCauseNotFound) {
		return transparencydomain.ErrCauseNotFound
	}
	return err
}

func removeAttachment(items []transparencydomain.Attachment, id string) ([]transparencydomain.Attachment, bool) {
	kept := make([]transparencydomain.Attachment, 0, len(items))
	removed := false
	for _, item := range items {
		if item.ID == id {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	return kept, removed
}

func validateDescription(description string) error {
	if description == "" || len([]rune(description)) > transparencydomain.MaxDescriptionLength {
		return transparencydomain.ErrInvalidDescription
	}
	return nil
}
