package migrations

import (
	"github.com/dreamic/permission-tracker/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createPermissionEventsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_permission_events",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.PermissionEventModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_permission_events_install_occurred ON permission_events (install_id, occurred_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_permission_events_type ON permission_events (event_type)`,
				`CREATE INDEX IF NOT EXISTS idx_permission_events_correlation_id ON permission_events (correlation_id) WHERE correlation_id <> ''`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.PermissionEventModel{})
		},
	}
}
