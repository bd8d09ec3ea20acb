package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	"github.com/smallbiznis/donasi/internal/auditcontext"
	"github.com/smallbiznis/donasi/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock `optional:"true"`
}

func NewService(p ServiceParam) auditdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: clk,
	}
}

func (s *Service) AuditLog(
	ctx context.Context,
	actorID *string,
	action auditdomain.Action,
	targetType string,
	targetID *string,
	changes map[string]any,
	metadata map[string]any,
) error {
	if strings.TrimSpace(string(action)) == "" {
		return auditdomain.ErrInvalidAction
	}
	if strings.TrimSpace(targetType) == "" {
		return auditdomain.ErrInvalidTargetType
	}

	actorType := string(auditdomain.ActorTypeSystem)
	ctxActorType, ctxActorID := auditcontext.ActorFromContext(ctx)
	if actorID == nil && ctxActorID != "" {
		actorID = &ctxActorID
	}
	if actorID != nil {
		actorType = string(auditdomain.ActorTypeUser)
	}
	if ctxActorType != "" && actorID != nil && *actorID == ctxActorID {
		actorType = ctxActorType
	}

	meta := datatypes.JSONMap{}
	for key, value := range metadata {
		meta[key] = value
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		meta["request_id"] = requestID
	}
	if role := auditcontext.RoleFromContext(ctx); role != "" {
		meta["actor_role"] = role
	}

	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     string(action),
		TargetType: targetType,
		TargetID:   targetID,
		Changes:    datatypes.JSONMap(changes),
		Metadata:   meta,
		IPAddress:  optionalString(auditcontext.IPAddressFromContext(ctx)),
		UserAgent:  optionalString(auditcontext.UserAgentFromContext(ctx)),
		CreatedAt:  s.clock.Now(),
	}
	if entry.Changes == nil {
		entry.Changes = datatypes.JSONMap{}
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Error("failed to write audit log",
			zap.String("action", entry.Action),
			zap.String("target_type", targetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) (auditdomain.ListResult, error) {
	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return auditdomain.ListResult{}, err
	}
	if items == nil {
		items = []auditdomain.AuditLog{}
	}
	return auditdomain.ListResult{Items: items, Total: total}, nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
