package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/expiry-reminder/internal/repository"
	"gorm.io/gorm"
)

func createNotificationsLogTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_notifications_log",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.NotificationLogModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_notifications_log_member_created ON notifications_log (member_id, created_at DESC)`,
				`CREATE INDEX IF NOT EXISTS idx_notifications_log_batch_id ON notifications_log (batch_id)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.NotificationLogModel{})
		},
	}
}
