package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"github.com/smallbiznis/donasi/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     causedomain.Repository
	auditSvc auditdomain.Service
	clock    clock.Clock
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     causedomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
	Clock    clock.Clock         `optional:"true"`
}

func NewService(p ServiceParam) causedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("cause.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		clock:    clk,
	}
}

func (s *Service) Create(ctx context.Context, req causedomain.CreateRequest) (*causedomain.Cause, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	category := strings.TrimSpace(req.Category)

	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if !causedomain.IsValidCategory(category) {
		return nil, causedomain.ErrInvalidCategory
	}
	if req.TargetAmount < 0 {
		return nil, causedomain.ErrInvalidTargetAmount
	}
	if req.Deadline.IsZero() {
		return nil, causedomain.ErrInvalidDeadline
	}

	now := s.clock.Now()
	cause := &causedomain.Cause{
		ID:           s.genID.Generate(),
		Title:        title,
		Description:  description,
		Category:     category,
		TargetAmount: req.TargetAmount,
		Image:        strings.TrimSpace(req.Image),
		Deadline:     req.Deadline.UTC(),
		Status:       causedomain.CauseStatusActive,
		CreatedBy:    req.CreatedBy,
		AuditStatus:  causedomain.AuditStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, cause); err != nil {
		return nil, err
	}

	s.writeAuditLog(ctx, req.CreatedBy, auditdomain.ActionCauseCreated, cause.ID, map[string]any{
		"title":         cause.Title,
		"category":      cause.Category,
		"target_amount": cause.TargetAmount,
	}, nil)
	return cause, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req causedomain.UpdateRequest) (*causedomain.Cause, error) {
	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, causedomain.ErrNotFound
	}

	fields := map[string]any{}
	changes := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if err := validateDescription(description); err != nil {
			return nil, err
		}
		fields["description"] = description
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if !causedomain.IsValidCategory(category) {
			return nil, causedomain.ErrInvalidCategory
		}
		fields["category"] = category
	}
	if req.TargetAmount != nil {
		if *req.TargetAmount < 0 {
			return nil, causedomain.ErrInvalidTargetAmount
		}
		fields["target_amount"] = *req.TargetAmount
	}
	if req.Image != nil {
		fields["image"] = strings.TrimSpace(*req.Image)
	}
	if req.Deadline != nil {
		if req.Deadline.IsZero() {
			return nil, causedomain.ErrInvalidDeadline
		}
		fields["deadline"] = req.Deadline.UTC()
	}
	if req.Status != nil {
		if !causedomain.IsValidStatus(*req.Status) {
			return nil, causedomain.ErrInvalidStatus
		}
		fields["status"] = *req.Status
	}
	for key, value := range fields {
		changes[key] = value
	}
	if len(fields) == 0 {
		return existing, nil
	}
	fields["updated_at"] = s.clock.Now()

	ok, err := s.repo.UpdateFields(ctx, s.db, id, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, causedomain.ErrNotFound
	}

	updated, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, causedomain.ErrNotFound
	}

	action := auditdomain.ActionCauseUpdated
	if req.Status != nil && *req.Status != existing.Status {
		action = auditdomain.ActionCauseStatusChanged
		changes["previous_status"] = existing.Status
	}
	s.writeAuditLog(ctx, req.UpdatedBy, action, id, changes, nil)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID, actorID snowflake.ID) error {
	var title string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return causedomain.ErrNotFound
		}
		title = existing.Title

		count, err := s.repo.CountDonations(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return causedomain.ErrCauseHasDonations
		}

		ok, err := s.repo.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return causedomain.ErrNotFound
		}
		return tx.WithContext(ctx).
			Where("cause_id = ?", id).
			Delete(&causedomain.ProgressUpdate{}).Error
	})
	if err != nil {
		return err
	}

	s.writeAuditLog(ctx, actorID, auditdomain.ActionCauseDeleted, id, map[string]any{"title": title}, nil)
	return nil
}

func (s *Service) AddProgressUpdate(ctx context.Context, id snowflake.ID, req causedomain.ProgressRequest) (*causedomain.ProgressUpdate, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, causedomain.ErrInvalidDescription
	}
	if req.Status != nil && !causedomain.IsValidStatus(*req.Status) {
		return nil, causedomain.ErrInvalidStatus
	}

	images := make([]string, 0, len(req.Images))
	for _, image := range req.Images {
		image = strings.TrimSpace(image)
		if image == "" {
			return nil, causedomain.ErrInvalidImage
		}
		images = append(images, image)
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	update := &causedomain.ProgressUpdate{
		ID:          s.genID.Generate(),
		CauseID:     id,
		Description: description,
		Images:      datatypes.JSON(encoded),
		UpdatedBy:   req.UpdatedBy,
		CreatedAt:   now,
	}

	var previous causedomain.CauseStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return causedomain.ErrNotFound
		}
		previous = existing.Status

		if err := s.repo.InsertProgressUpdate(ctx, tx, update); err != nil {
			return err
		}
		fields := map[string]any{"updated_at": now}
		if req.Status != nil {
			fields["status"] = *req.Status
		}
		_, err = s.repo.UpdateFields(ctx, tx, id, fields)
		return err
	})
	if err != nil {
		return nil, err
	}

	if req.Status != nil && *req.Status != previous {
		s.writeAuditLog(ctx, req.UpdatedBy, auditdomain.ActionCauseStatusChanged, id, map[string]any{
			"status":          *req.Status,
			"previous_status": previous,
		}, map[string]any{"progress_update_id": update.ID.String()})
	}
	return update, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*causedomain.CauseView, error) {
	cause, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if cause == nil {
		return nil, causedomain.ErrNotFound
	}
	view := causedomain.NewCauseView(*cause, s.clock.Now())
	return &view, nil
}

func (s *Service) List(ctx context.Context, filter causedomain.ListFilter) (causedomain.ListResult, error) {
	if filter.Category != "" && !causedomain.IsValidCategory(filter.Category) {
		return causedomain.ListResult{}, causedomain.ErrInvalidCategory
	}
	if filter.Status != "" && !causedomain.IsValidStatus(filter.Status) {
		return causedomain.ListResult{}, causedomain.ErrInvalidStatus
	}
	if filter.AuditStatus != "" && !causedomain.IsValidAuditStatus(filter.AuditStatus) {
		return causedomain.ListResult{}, causedomain.ErrInvalidAuditDecision
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return causedomain.ListResult{}, err
	}

	now := s.clock.Now()
	views := make([]causedomain.CauseView, 0, len(items))
	for _, item := range items {
		views = append(views, causedomain.NewCauseView(item, now))
	}
	return causedomain.ListResult{Items: views, Total: total}, nil
}

func (s *Service) ListProgressUpdates(ctx context.Context, causeID snowflake.ID) ([]causedomain.ProgressUpdate, error) {
	cause, err := s.repo.FindByID(ctx, s.db, causeID)
	if err != nil {
		return nil, err
	}
	if cause == nil {
		return nil, causedomain.ErrNotFound
	}
	items, err := s.repo.ListProgressUpdates(ctx, s.db, causeID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []causedomain.ProgressUpdate{}
	}
	return items, nil
}

func (s *Service) writeAuditLog(
	ctx context.Context,
	actorID snowflake.ID,
	action auditdomain.Action,
	causeID snowflake.ID,
	changes map[string]any,
	metadata map[string]any,
) {
	if s.auditSvc == nil {
		return
	}
	var actor *string
	if actorID != 0 {
		value := actorID.String()
		actor = &value
	}
	target := causeID.String()
	if err := s.auditSvc.AuditLog(ctx, actor, action, auditdomain.TargetCause, &target, changes, metadata); err != nil {
		s.log.Warn("failed to write cause audit log",
			zap.String("cause_id", target),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func validateTitle(title string) error {
	if title == "" || len([]rune(title)) > causedomain.MaxTitleLength {
		return causedomain.ErrInvalidTitle
	}
	return nil
}

func validateDescription(description string) error {
	if description == "" || len([]rune(description)) > causedomain.MaxDescriptionLength {
		return causedomain.ErrInvalidDescription
	}
	return nil
}
