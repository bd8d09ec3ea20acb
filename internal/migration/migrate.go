package migration

import (
	"fmt"

	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	"github.com/smallbiznis/donasi/internal/events"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
	reportdomain "github.com/smallbiznis/donasi/internal/report/domain"
	transparencydomain "github.com/smallbiznis/donasi/internal/transparency/domain"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&causedomain.Cause{},
		&causedomain.ProgressUpdate{},
		&donationdomain.Donation{},
		&transparencydomain.TransparencyReport{},
		&auditdomain.AuditLog{},
		&paymentdomain.EventRecord{},
		&events.DonationEvent{},
		&reportdomain.ReportLog{},
	}
}

// RunMigrations creates or updates the schema.
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("migration database handle is required")
	}
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}
