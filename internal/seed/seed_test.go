package seed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	causerepository "github.com/smallbiznis/donasi/internal/cause/repository"
	causeservice "github.com/smallbiznis/donasi/internal/cause/service"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	"github.com/smallbiznis/donasi/internal/db"
	"github.com/smallbiznis/donasi/internal/migration"
	"go.uber.org/zap"
)

func TestEnsureSampleCausesIsIdempotent(t *testing.T) {
	conn, err := db.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "seed.db"),
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
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := causeservice.NewService(causeservice.ServiceParam{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  causerepository.Provide(),
		Clock: clock.FixedClock{At: now},
	})
	ctx := context.Background()

	created, err := EnsureSampleCauses(ctx, conn, svc, now, zap.NewNop())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if created != len(sampleCauses) {
		t.Fatalf("expected %d causes, got %d", len(sampleCauses), created)
	}

	created, err = EnsureSampleCauses(ctx, conn, svc, now, zap.NewNop())
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected no causes on second run, got %d", created)
	}

	var causes []causedomain.Cause
	if err := conn.Find(&causes).Error; err != nil {
		t.Fatalf("load causes: %v", err)
	}
	for _, cause := range causes {
		if !cause.Deadline.After(now) || cause.CreatedBy != SystemActorID {
			t.Fatalf("unexpected seeded cause %+v", cause)
		}
	}
}
