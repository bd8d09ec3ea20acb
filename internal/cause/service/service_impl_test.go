package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	auditrepository "github.com/smallbiznis/donasi/internal/audit/repository"
	auditservice "github.com/smallbiznis/donasi/internal/audit/service"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"github.com/smallbiznis/donasi/internal/cause/repository"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	"github.com/smallbiznis/donasi/internal/db"
	"github.com/smallbiznis/donasi/internal/migration"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type testEnv struct {
	db    *gorm.DB
	svc   causedomain.Service
	audit auditdomain.Service
}

func TestCreateCauseStartsWithZeroFunds(t *testing.T) {
	env := setupCauseTest(t)

	cause, err := env.svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cause.CurrentAmount != 0 || cause.DisbursedAmount != 0 || cause.TotalDonors != 0 {
		t.Fatalf("expected zero counters, got %+v", cause)
	}
	if cause.Status != causedomain.CauseStatusActive {
		t.Fatalf("expected active status, got %s", cause.Status)
	}
	if cause.AuditStatus != causedomain.AuditStatusPending {
		t.Fatalf("expected pending_audit, got %s", cause.AuditStatus)
	}

	logs, err := env.audit.List(context.Background(), auditdomain.ListFilter{Action: string(auditdomain.ActionCauseCreated)})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if logs.Total != 1 {
		t.Fatalf("expected 1 cause_created log, got %d", logs.Total)
	}
}

func TestCreateCauseValidation(t *testing.T) {
	env := setupCauseTest(t)

	cases := []struct {
		name   string
		mutate func(*causedomain.CreateRequest)
		want   error
	}{
		{"empty title", func(r *causedomain.CreateRequest) { r.Title = " " }, causedomain.ErrInvalidTitle},
		{"long title", func(r *causedomain.CreateRequest) { r.Title = strings.Repeat("a", 101) }, causedomain.ErrInvalidTitle},
		{"long description", func(r *causedomain.CreateRequest) { r.Description = strings.Repeat("a", 2001) }, causedomain.ErrInvalidDescription},
		{"unknown category", func(r *causedomain.CreateRequest) { r.Category = "olahraga" }, causedomain.ErrInvalidCategory},
		{"negative target", func(r *causedomain.CreateRequest) { r.TargetAmount = -1 }, causedomain.ErrInvalidTargetAmount},
		{"missing deadline", func(r *causedomain.CreateRequest) { r.Deadline = time.Time{} }, causedomain.ErrInvalidDeadline},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCreateRequest()
			tc.mutate(&req)
			if _, err := env.svc.Create(context.Background(), req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUpdateCauseNeverTouchesFunds(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	cause, err := env.svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.db.Model(&causedomain.Cause{}).Where("id = ?", cause.ID).
		Updates(map[string]any{"current_amount": 300_000, "disbursed_amount": 100_000, "total_donors": 3}).Error; err != nil {
		t.Fatalf("seed counters: %v", err)
	}

	title := "Sumur untuk desa"
	target := int64(2_000_000)
	status := causedomain.CauseStatusCompleted
	updated, err := env.svc.Update(ctx, cause.ID, causedomain.UpdateRequest{
		Title:        &title,
		TargetAmount: &target,
		Status:       &status,
		UpdatedBy:    7,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != title || updated.TargetAmount != target || updated.Status != status {
		t.Fatalf("expected edits applied, got %+v", updated)
	}
	if updated.CurrentAmount != 300_000 || updated.DisbursedAmount != 100_000 || updated.TotalDonors != 3 {
		t.Fatalf("expected counters untouched, got %+v", updated)
	}

	logs, err := env.audit.List(ctx, auditdomain.ListFilter{Action: string(auditdomain.ActionCauseStatusChanged)})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if logs.Total != 1 {
		t.Fatalf("expected 1 status change log, got %d", logs.Total)
	}
}

func TestUpdateUnknownCause(t *testing.T) {
	env := setupCauseTest(t)
	title := "x"
	_, err := env.svc.Update(context.Background(), snowflake.ID(404), causedomain.UpdateRequest{Title: &title})
	if !errors.Is(err, causedomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCause(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	cause, err := env.svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.svc.Delete(ctx, cause.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.svc.GetByID(ctx, cause.ID); !errors.Is(err, causedomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := env.svc.Delete(ctx, cause.ID, 1); !errors.Is(err, causedomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteCauseWithDonationsIsRejected(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	cause, err := env.svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = env.db.Exec(
		`INSERT INTO donations (id, order_id, donor_id, cause_id, amount, status, distribution_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 'pending', 'pending', ?, ?)`,
		99, "DONATION-99", 5, cause.ID, 10_000, fixedNow, fixedNow,
	).Error
	if err != nil {
		t.Fatalf("insert donation: %v", err)
	}

	if err := env.svc.Delete(ctx, cause.ID, 1); !errors.Is(err, causedomain.ErrCauseHasDonations) {
		t.Fatalf("expected ErrCauseHasDonations, got %v", err)
	}
	if _, err := env.svc.GetByID(ctx, cause.ID); err != nil {
		t.Fatalf("expected cause to survive, got %v", err)
	}
}

func TestProgressUpdatesAreAppendOnly(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	cause, err := env.svc.Create(ctx, validCreateRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.AddProgressUpdate(ctx, cause.ID, causedomain.ProgressRequest{
		Description: "Penggalian dimulai",
		Images:      []string{"causes/1/dig.jpg"},
		UpdatedBy:   1,
	}); err != nil {
		t.Fatalf("add progress: %v", err)
	}
	closed := causedomain.CauseStatusClosed
	if _, err := env.svc.AddProgressUpdate(ctx, cause.ID, causedomain.ProgressRequest{
		Description: "Sumur selesai",
		Status:      &closed,
		UpdatedBy:   1,
	}); err != nil {
		t.Fatalf("add progress: %v", err)
	}

	updates, err := env.svc.ListProgressUpdates(ctx, cause.ID)
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}
	view, err := env.svc.GetByID(ctx, cause.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Status != causedomain.CauseStatusClosed {
		t.Fatalf("expected closed status, got %s", view.Status)
	}

	if _, err := env.svc.AddProgressUpdate(ctx, snowflake.ID(404), causedomain.ProgressRequest{Description: "x"}); !errors.Is(err, causedomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListCausesFilters(t *testing.T) {
	env := setupCauseTest(t)
	ctx := context.Background()

	for _, category := range []string{"pendidikan", "kesehatan", "pendidikan"} {
		req := validCreateRequest()
		req.Category = category
		if _, err := env.svc.Create(ctx, req); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	result, err := env.svc.List(ctx, causedomain.ListFilter{Category: "pendidikan"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 2 || len(result.Items) != 2 {
		t.Fatalf("expected 2 pendidikan causes, got total=%d items=%d", result.Total, len(result.Items))
	}
	if _, err := env.svc.List(ctx, causedomain.ListFilter{Category: "unknown"}); !errors.Is(err, causedomain.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestCauseViewDerivedValues(t *testing.T) {
	cause := causedomain.Cause{
		TargetAmount:    1_000_000,
		CurrentAmount:   250_000,
		DisbursedAmount: 100_000,
		Deadline:        fixedNow.Add(36 * time.Hour),
	}
	view := causedomain.NewCauseView(cause, fixedNow)
	if view.ProgressPercentage != 25 {
		t.Fatalf("expected 25%% progress, got %d", view.ProgressPercentage)
	}
	if view.DisbursementPercentage != 40 {
		t.Fatalf("expected 40%% disbursed, got %d", view.DisbursementPercentage)
	}
	if view.RemainingAmount != 750_000 || view.RemainingDisbursement != 150_000 {
		t.Fatalf("unexpected remaining values %+v", view)
	}
	if view.DaysRemaining != 2 {
		t.Fatalf("expected 2 days remaining, got %d", view.DaysRemaining)
	}

	past := causedomain.NewCauseView(causedomain.Cause{Deadline: fixedNow.Add(-time.Hour)}, fixedNow)
	if past.DaysRemaining != 0 || past.ProgressPercentage != 0 {
		t.Fatalf("expected zero values for expired empty cause, got %+v", past)
	}
}

func setupCauseTest(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "cause.db"),
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
	clk := clock.FixedClock{At: fixedNow}
	auditSvc := auditservice.NewService(auditservice.ServiceParam{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepository.Provide(),
		Clock: clk,
	})
	svc := NewService(ServiceParam{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		AuditSvc: auditSvc,
		Clock:    clk,
	})
	return testEnv{db: conn, svc: svc, audit: auditSvc}
}

func validCreateRequest() causedomain.CreateRequest {
	return causedomain.CreateRequest{
		Title:        "Sumur bersih",
		Description:  "Pembangunan sumur untuk desa",
		Category:     "infrastruktur",
		TargetAmount: 1_000_000,
		Deadline:     fixedNow.Add(30 * 24 * time.Hour),
		CreatedBy:    1,
	}
}
