package models

import "time"

// Post is a blog entry. Only published posts appear in the public feed;
// the author sees and edits their own posts regardless of published state.
type Post struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AuthorID uint64 `gorm:"not null;index"`              // Owning user.
	Author   *User  `gorm:"constraint:OnDelete:CASCADE"` // Association for the FK constraint.

	Title     string `gorm:"type:varchar(200);not null"` // Post title.
	Content   string `gorm:"type:text"`                  // Post body.
	Published bool   `gorm:"not null;default:false"`     // Public visibility flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
