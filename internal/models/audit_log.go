package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is an append-only record of user actions and security events.
// Rows are never updated or deleted by the application; deleting a user
// nulls out the reference instead of dropping the row.
type AuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID *uint64 `gorm:"index"`                        // Acting user, nil for anonymous events.
	User   *User   `gorm:"constraint:OnDelete:SET NULL"` // Association for the FK constraint.

	IPAddress string            `gorm:"type:varchar(64)"`                 // Resolved client address.
	Path      string            `gorm:"type:varchar(500)"`                // Request path.
	Method    string            `gorm:"type:varchar(10)"`                 // Request method.
	Action    string            `gorm:"type:varchar(100);not null;index"` // Event tag, e.g. login, unauthorized_attempt.
	Details   datatypes.JSONMap `gorm:"type:jsonb"`                       // Free-form event context.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Event timestamp.
}
