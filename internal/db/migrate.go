package db

import (
	"gorm.io/gorm"

	"github.com/inkwell-hq/inkwell/internal/models"
)

// Migrate creates or updates the schema for all application models.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Post{},
		&models.AdminSetup{},
		&models.BannedIP{},
		&models.AuditLog{},
		&models.TrafficLog{},
	)
}
