package domain

import (
	"slices"
	"time"
)

// GameServer is a registered per-title server. Records are owned by an
// external registry; this service only reads them. Every server holds its
// own AES key, distinct from the account-service master key.
type GameServer struct {
	ID              uint        `gorm:"primaryKey"`
	ClientID        string      `gorm:"size:64;index"`
	IP              string      `gorm:"size:64"`
	Port            int
	ServiceName     string      `gorm:"size:64"`
	GameServerID    string      `gorm:"size:16;index"`
	TitleIDs        TitleIDList `gorm:"type:text;serializer:json"`
	AccessMode      string      `gorm:"size:8;index"`
	MaintenanceMode bool        `gorm:"default:false"`
	AESKey          string      `gorm:"size:64"` // hex, 32 bytes decoded
	SystemType      uint8
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type TitleIDList []string

// ServesTitle reports whether the server is registered for a title.
func (s *GameServer) ServesTitle(titleID string) bool {
	return slices.Contains(s.TitleIDs, titleID)
}
