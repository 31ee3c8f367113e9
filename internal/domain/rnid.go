package domain

import "time"

// RNID is a network account. The protocol core authenticates it and honors
// its ban/delete flags; everything else about the account (profile, email
// validation, Mii data) is owned by the account-management service.
type RNID struct {
	ID                uint   `gorm:"primaryKey"`
	PID               uint32 `gorm:"column:pid;uniqueIndex"`
	Username          string `gorm:"size:16;uniqueIndex"`
	UsernameLower     string `gorm:"size:16;uniqueIndex"`
	Password          string `gorm:"size:128"` // bcrypt over the console pre-hash
	EmailAddress      string `gorm:"size:128"`
	AccessLevel       int    `gorm:"default:0"`
	ServerAccessLevel string `gorm:"size:8;default:prod"`
	Deleted           bool   `gorm:"default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Banned reports whether the account has been flagged out of service.
func (a *RNID) Banned() bool {
	return a.AccessLevel < 0
}
