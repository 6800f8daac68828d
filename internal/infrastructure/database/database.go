package database

import (
	"sentinel-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from a Postgres DSN. PreferSimpleProtocol disables
// prepared statement caching to avoid 42P05 ("prepared statement already
// exists") when running behind a connection pooler.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for all models owned by this service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Division{},
		&domain.Member{},
		&domain.Checkin{},
		&domain.Visitor{},
		&domain.MissedCheckout{},
		&domain.QualificationType{},
		&domain.MemberQualification{},
		&domain.Tag{},
		&domain.MemberTag{},
		&domain.LockupStatus{},
		&domain.LockupTransfer{},
		&domain.LockupExecution{},
		&domain.DdsAssignment{},
		&domain.ResponsibilityAuditLog{},
	)
}
