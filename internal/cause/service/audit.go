package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"go.uber.org/zap"
)

var openAuditStatuses = []causedomain.AuditStatus{
	causedomain.AuditStatusPending,
	causedomain.AuditStatusInProgress,
}

// StartAudit claims a cause for review. Only pending_audit causes can be started.
func (s *Service) StartAudit(ctx context.Context, causeID snowflake.ID, actorID snowflake.ID) (*causedomain.Cause, error) {
	ok, err := s.repo.CompareAndSetAudit(ctx, s.db, causeID,
		[]causedomain.AuditStatus{causedomain.AuditStatusPending},
		map[string]any{
			"audit_status": causedomain.AuditStatusInProgress,
			"updated_at":   s.clock.Now(),
		},
	)
	if err != nil {
		return nil, err
	}

	cause, err := s.repo.FindByID(ctx, s.db, causeID)
	if err != nil {
		return nil, err
	}
	if cause == nil {
		return nil, causedomain.ErrNotFound
	}
	if !ok {
		if cause.AuditStatus.IsTerminal() {
			return nil, causedomain.ErrAlreadyFinalized
		}
		if cause.AuditStatus == causedomain.AuditStatusInProgress {
			return cause, nil
		}
		return nil, causedomain.ErrAuditNotPending
	}

	s.log.Info("audit started",
		zap.String("cause_id", causeID.String()),
		zap.String("auditor_id", actorID.String()),
	)
	return cause, nil
}

// MarkAudited records the final audit decision. A decision is written at most once.
func (s *Service) MarkAudited(ctx context.Context, req causedomain.MarkAuditedRequest) (*causedomain.Cause, error) {
	if req.Decision != causedomain.AuditStatusVerified && req.Decision != causedomain.AuditStatusFlagged {
		return nil, causedomain.ErrInvalidAuditDecision
	}
	notes := strings.TrimSpace(req.Notes)
	if len([]rune(notes)) > causedomain.MaxAuditNotesLength {
		return nil, causedomain.ErrAuditNotesTooLong
	}

	now := s.clock.Now()
	fields := map[string]any{
		"audit_status": req.Decision,
		"audited_by":   req.ActorID,
		"audited_at":   now,
		"audit_notes":  notes,
		"updated_at":   now,
	}
	if document := strings.TrimSpace(req.DocumentRef); document != "" {
		fields["audit_document"] = document
	}

	ok, err := s.repo.CompareAndSetAudit(ctx, s.db, req.CauseID, openAuditStatuses, fields)
	if err != nil {
		return nil, err
	}

	cause, err := s.repo.FindByID(ctx, s.db, req.CauseID)
	if err != nil {
		return nil, err
	}
	if cause == nil {
		return nil, causedomain.ErrNotFound
	}
	if !ok {
		return nil, causedomain.ErrAlreadyFinalized
	}

	action := auditdomain.ActionAuditReportVerified
	if req.Decision == causedomain.AuditStatusFlagged {
		action = auditdomain.ActionAuditReportFlagged
	}
	s.writeAuditLog(ctx, req.ActorID, action, cause.ID, map[string]any{
		"audit_status": req.Decision,
		"audit_notes":  notes,
	}, map[string]any{
		"description":    "cause audit " + string(req.Decision),
		"audit_document": cause.AuditDocument,
	})
	return cause, nil
}
