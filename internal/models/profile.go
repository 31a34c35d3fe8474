package models

// Profile holds per-user public presentation fields. One row per user,
// created lazily on first profile access.
type Profile struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID      uint64 `gorm:"not null;uniqueIndex"`        // Owning user.
	User        *User  `gorm:"constraint:OnDelete:CASCADE"` // Association for the FK constraint.
	Bio         string `gorm:"type:text"`                   // Free-form biography.
	DisplayName string `gorm:"type:varchar(100)"`           // Preferred display name.
}
