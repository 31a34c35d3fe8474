package models

import "time"

// TrafficLog is an append-only record of one API request/response pair.
type TrafficLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	IPAddress  string `gorm:"type:varchar(64)"`  // Resolved client address.
	Path       string `gorm:"type:varchar(500)"` // Request path.
	Method     string `gorm:"type:varchar(10)"`  // Request method.
	StatusCode int    `gorm:"not null"`          // Final response status.
	UserAgent  string `gorm:"type:varchar(500)"` // Client user agent, truncated at write.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Request timestamp.
}
