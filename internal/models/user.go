package models

import "time"

// User represents a registered account. Staff users can access the admin
// portal; the superuser created by one-time setup is immutable via the API.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Hashed password.
	Email    string `gorm:"type:text"`                      // Optional email address.

	IsStaff     bool `gorm:"not null;default:false"` // Grants admin portal access.
	IsSuperuser bool `gorm:"not null;default:false"` // Write-protected via the admin API.
	IsActive    bool `gorm:"not null;default:true"`  // Cleared instead of deleting on ban.

	CreatedAt time.Time  `gorm:"not null;autoCreateTime"` // Creation timestamp.
	LastLogin *time.Time // Last successful login, nil before first login.
}
