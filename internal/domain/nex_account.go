package domain

import "time"

// PIDs count down from the historical ceiling of the original service;
// everything above the ceiling was reserved for first-party accounts.
const (
	PIDRangeMin uint32 = 1000000000
	PIDRangeMax uint32 = 1799999999
)

// NEXAccount is the game-server-side identity linked to a device or RNID.
// Its password is generated by this service and handed to the console,
// which replays it against game servers directly.
type NEXAccount struct {
	ID                uint   `gorm:"primaryKey"`
	DeviceType        string `gorm:"size:8"` // wiiu or 3ds
	PID               uint32 `gorm:"column:pid;uniqueIndex"`
	Password          string `gorm:"size:64"`
	OwningPID         uint32 `gorm:"column:owning_pid;index"`
	AccessLevel       int    `gorm:"default:0"`
	ServerAccessLevel string `gorm:"size:8;default:prod"`
	FriendCode        string `gorm:"size:32"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Banned reports whether the account has been flagged out of service.
func (a *NEXAccount) Banned() bool {
	return a.AccessLevel < 0
}
