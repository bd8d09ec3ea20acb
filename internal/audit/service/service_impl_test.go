package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	"github.com/smallbiznis/donasi/internal/audit/repository"
	"github.com/smallbiznis/donasi/internal/auditcontext"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	"github.com/smallbiznis/donasi/internal/db"
	"github.com/smallbiznis/donasi/internal/migration"
	"go.uber.org/zap"
)

func TestAuditLogCapturesRequestContext(t *testing.T) {
	svc := setupAuditService(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))

	ctx := auditcontext.WithRequestID(context.Background(), "req-1")
	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeUser), "42")
	ctx = auditcontext.WithRole(ctx, "admin")
	ctx = auditcontext.WithIPAddress(ctx, "10.0.0.1")
	ctx = auditcontext.WithUserAgent(ctx, "curl/8.0")

	target := "7"
	err := svc.AuditLog(ctx, nil, auditdomain.ActionCauseCreated, auditdomain.TargetCause, &target,
		map[string]any{"title": "Sumur"},
		map[string]any{"description": "cause created"},
	)
	if err != nil {
		t.Fatalf("audit log: %v", err)
	}

	result, err := svc.List(context.Background(), auditdomain.ListFilter{TargetType: auditdomain.TargetCause, TargetID: "7"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected 1 entry, got %d", result.Total)
	}
	entry := result.Items[0]
	if entry.ActorID == nil || *entry.ActorID != "42" || entry.ActorType != "user" {
		t.Fatalf("expected user actor 42, got %v/%s", entry.ActorID, entry.ActorType)
	}
	if entry.Metadata["request_id"] != "req-1" || entry.Metadata["actor_role"] != "admin" {
		t.Fatalf("expected request metadata, got %v", entry.Metadata)
	}
	if entry.IPAddress == nil || *entry.IPAddress != "10.0.0.1" {
		t.Fatalf("expected ip address, got %v", entry.IPAddress)
	}
	if entry.UserAgent == nil || *entry.UserAgent != "curl/8.0" {
		t.Fatalf("expected user agent, got %v", entry.UserAgent)
	}
}

func TestAuditLogWithoutActorIsSystem(t *testing.T) {
	svc := setupAuditService(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))

	target := "9"
	if err := svc.AuditLog(context.Background(), nil, auditdomain.ActionDonationVerified, auditdomain.TargetDonation, &target, nil, nil); err != nil {
		t.Fatalf("audit log: %v", err)
	}
	result, err := svc.List(context.Background(), auditdomain.ListFilter{Action: string(auditdomain.ActionDonationVerified)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 1 || result.Items[0].ActorType != "system" || result.Items[0].ActorID != nil {
		t.Fatalf("expected system entry, got %+v", result.Items)
	}
}

func TestAuditLogValidation(t *testing.T) {
	svc := setupAuditService(t, time.Now())

	if err := svc.AuditLog(context.Background(), nil, "", auditdomain.TargetCause, nil, nil, nil); !errors.Is(err, auditdomain.ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if err := svc.AuditLog(context.Background(), nil, auditdomain.ActionCauseCreated, " ", nil, nil, nil); !errors.Is(err, auditdomain.ErrInvalidTargetType) {
		t.Fatalf("expected ErrInvalidTargetType, got %v", err)
	}
}

func TestListFiltersByTimeRange(t *testing.T) {
	clk := &steppingClock{at: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc := setupAuditService(t, time.Time{})
	svc.(*Service).clock = clk

	for i := 0; i < 3; i++ {
		if err := svc.AuditLog(context.Background(), nil, auditdomain.ActionCauseUpdated, auditdomain.TargetCause, nil, nil, nil); err != nil {
			t.Fatalf("audit log: %v", err)
		}
	}

	start := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	result, err := svc.List(context.Background(), auditdomain.ListFilter{StartAt: &start})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected 2 entries from day two, got %d", result.Total)
	}

	result, err = svc.List(context.Background(), auditdomain.ListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if result.Total != 3 || len(result.Items) != 1 {
		t.Fatalf("expected paged result of 1 out of 3, got %d of %d", len(result.Items), result.Total)
	}
}

type steppingClock struct {
	at time.Time
}

func (c *steppingClock) Now() time.Time {
	now := c.at
	c.at = c.at.Add(24 * time.Hour)
	return now
}

func setupAuditService(t *testing.T, now time.Time) auditdomain.Service {
	t.Helper()
	conn, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "audit.db"),
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
	return NewService(ServiceParam{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.FixedClock{At: now},
	})
}
