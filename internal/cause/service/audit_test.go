package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
)

func TestAuditWorkflowHappyPath(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	cause, err := env.svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	started, err := env.svc.StartAudit(ctx, cause.ID, 9)
	if err != nil {
		t.Fatalf("start audit: %v", err)
	}
	if started.AuditStatus != causedomain.AuditStatusInProgress {
		t.Fatalf("expected audit_in_progress, got %s", started.AuditStatus)
	}

	audited, err := env.svc.MarkAudited(ctx, causedomain.MarkAuditedRequest{
		CauseID:     cause.ID,
		Decision:    causedomain.AuditStatusVerified,
		Notes:       "Semua bukti lengkap",
		ActorID:     9,
		DocumentRef: "audits/2025/sumur.pdf",
	})
	if err != nil {
		t.Fatalf("mark audited: %v", err)
	}
	if audited.AuditStatus != causedomain.AuditStatusVerified {
		t.Fatalf("expected audit_verified, got %s", audited.AuditStatus)
	}
	if audited.AuditedBy == nil || *audited.AuditedBy != snowflake.ID(9) {
		t.Fatalf("expected audited_by 9, got %v", audited.AuditedBy)
	}
	if audited.AuditedAt == nil || !audited.AuditedAt.Equal(fixedNow) {
		t.Fatalf("expected audited_at stamped, got %v", audited.AuditedAt)
	}
	if audited.AuditDocument != "audits/2025/sumur.pdf" {
		t.Fatalf("expected document ref stored, got %q", audited.AuditDocument)
	}

	logs, err := env.audit.List(ctx, auditdomain.ListFilter{Action: string(auditdomain.ActionAuditReportVerified)})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if logs.Total != 1 {
		t.Fatalf("expected exactly 1 audit_report_verified log, got %d", logs.Total)
	}
}

func TestMarkAuditedFromPendingSkipsStart(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	cause, err := env.svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	audited, err := env.svc.MarkAudited(ctx, causedomain.MarkAuditedRequest{
		CauseID:  cause.ID,
		Decision: causedomain.AuditStatusFlagged,
		Notes:    "Bukti pengeluaran tidak cocok",
		ActorID:  9,
	})
	if err != nil {
		t.Fatalf("mark audited: %v", err)
	}
	if audited.AuditStatus != causedomain.AuditStatusFlagged {
		t.Fatalf("expected audit_flagged, got %s", audited.AuditStatus)
	}
}

func TestAuditTerminality(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	cause, err := env.svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.MarkAudited(ctx, causedomain.MarkAuditedRequest{
		CauseID:  cause.ID,
		Decision: causedomain.AuditStatusVerified,
		Notes:    "ok",
		ActorID:  9,
	}); err != nil {
		t.Fatalf("mark audited: %v", err)
	}

	for _, decision := range []causedomain.AuditStatus{causedomain.AuditStatusVerified, causedomain.AuditStatusFlagged} {
		_, err := env.svc.MarkAudited(ctx, causedomain.MarkAuditedRequest{
			CauseID:  cause.ID,
			Decision: decision,
			Notes:    "second opinion",
			ActorID:  10,
		})
		if !errors.Is(err, causedomain.ErrAlreadyFinalized) {
			t.Fatalf("expected ErrAlreadyFinalized for %s, got %v", decision, err)
		}
	}
	if _, err := env.svc.StartAudit(ctx, cause.ID, 10); !errors.Is(err, causedomain.ErrAlreadyFinalized) {
		t.Fatalf("expected ErrAlreadyFinalized on start, got %v", err)
	}

	view, err := env.svc.GetByID(ctx, cause.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.AuditStatus != causedomain.AuditStatusVerified || view.AuditNotes != "ok" {
		t.Fatalf("expected first decision to stick, got status=%s notes=%q", view.AuditStatus, view.AuditNotes)
	}
	if view.AuditedBy == nil || *view.AuditedBy != snowflake.ID(9) {
		t.Fatalf("expected original auditor to stick, got %v", view.AuditedBy)
	}
}

func TestConcurrentMarkAuditedSingleWinner(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	cause, err := env.svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const callers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		finalized int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := causedomain.AuditStatusVerified
			if i%2 == 1 {
				decision = causedomain.AuditStatusFlagged
			}
			_, err := env.svc.MarkAudited(ctx, causedomain.MarkAuditedRequest{
				CauseID:  cause.ID,
				Decision: decision,
				ActorID:  snowflake.ID(100 + i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, causedomain.ErrAlreadyFinalized):
				finalized++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || finalized != callers-1 {
		t.Fatalf("expected 1 winner and %d finalized, got %d and %d", callers-1, successes, finalized)
	}
	logs, err := env.audit.List(ctx, auditdomain.ListFilter{TargetType: auditdomain.TargetCause, TargetID: cause.ID.String()})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	decisions := 0
	for _, entry := range logs.Items {
		if entry.Action == string(auditdomain.ActionAuditReportVerified) || entry.Action == string(auditdomain.ActionAuditReportFlagged) {
			decisions++
		}
	}
	if decisions != 1 {
		t.Fatalf("expected exactly 1 decision log, got %d", decisions)
	}
}

func TestMarkAuditedValidation(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	cause, err := env.svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = env.svc.MarkAudited(ctx, causedomain.MarkAuditedRequest{CauseID: cause.ID, Decision: causedomain.AuditStatusInProgress})
	if !errors.Is(err, causedomain.ErrInvalidAuditDecision) {
		t.Fatalf("expected ErrInvalidAuditDecision, got %v", err)
	}
	_, err = env.svc.MarkAudited(ctx, causedomain.MarkAuditedRequest{
		CauseID:  cause.ID,
		Decision: causedomain.AuditStatusVerified,
		Notes:    strings.Repeat("n", 2001),
	})
	if !errors.Is(err, causedomain.ErrAuditNotesTooLong) {
		t.Fatalf("expected ErrAuditNotesTooLong, got %v", err)
	}
	_, err = env.svc.MarkAudited(ctx, causedomain.MarkAuditedRequest{CauseID: snowflake.ID(404), Decision: causedomain.AuditStatusVerified})
	if !errors.Is(err, causedomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	view, err := env.svc.GetByID(ctx, cause.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.AuditStatus != causedomain.AuditStatusPending {
		t.Fatalf("expected rejected calls to leave pending_audit, got %s", view.AuditStatus)
	}
}
