package models

// AppLock is a database-backed lock row used to coordinate background
// sweeps between multiple instances in HA mode.
type AppLock struct {
	LockName   string `gorm:"primaryKey;size:255"`
	InstanceID string `gorm:"size:255;not null"`
	AcquiredAt int64  `gorm:"not null;index"`
	ExpiresAt  int64  `gorm:"not null;index"`
}

func (AppLock) TableName() string {
	return "app_locks"
}
