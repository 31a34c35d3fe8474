package models

// AdminSetupID is the fixed primary key of the singleton AdminSetup row.
// The primary-key constraint is what makes concurrent setup attempts
// exactly-once: only one caller can ever insert or flip the row.
const AdminSetupID uint64 = 1

// AdminSetup records whether one-time admin bootstrap has completed.
// Configured never transitions back to false.
type AdminSetup struct {
	ID         uint64 `gorm:"primaryKey"`             // Always AdminSetupID.
	Configured bool   `gorm:"not null;default:false"` // True once setup succeeded.
}
