package models

import "time"

// BannedIP blocks all requests from an address. Presence of a row is the
// whole policy; matching is exact.
type BannedIP struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	IPAddress string `gorm:"type:varchar(64);not null;uniqueIndex"` // Banned address.
	Reason    string `gorm:"type:varchar(255)"`                     // Optional operator note.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Ban timestamp.
}
