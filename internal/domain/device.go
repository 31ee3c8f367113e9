package domain

import (
	"slices"
	"time"
)

// Model is the hardware family a device belongs to, derived from the first
// character of its serial number.
type Model string

const (
	ModelWUP Model = "wup" // Wii U
	ModelCTR Model = "ctr" // 3DS
	ModelSPR Model = "spr" // 3DS XL
	ModelFTR Model = "ftr" // 2DS
	ModelKTR Model = "ktr" // New 3DS
	ModelRED Model = "red" // New 3DS XL
	ModelJAN Model = "jan" // New 2DS XL
)

var serialPrefixModels = map[byte]Model{
	'W': ModelWUP,
	'C': ModelCTR,
	'S': ModelSPR,
	'A': ModelFTR,
	'Y': ModelKTR,
	'Q': ModelRED,
	'N': ModelJAN,
}

// ModelFromSerial maps a serial number to its hardware family.
func ModelFromSerial(serial string) (Model, bool) {
	if serial == "" {
		return "", false
	}
	model, ok := serialPrefixModels[serial[0]]
	return model, ok
}

// Device is one physical or emulated console. Records are never deleted;
// misbehaving devices are flagged through AccessLevel instead.
type Device struct {
	ID                uint    `gorm:"primaryKey"`
	Model             Model   `gorm:"size:8;uniqueIndex:idx_device_fingerprint"`
	DeviceID          uint32  `gorm:"index"`
	Serial            string  `gorm:"size:16;index;uniqueIndex:idx_device_fingerprint"`
	Environment       string  `gorm:"size:8;uniqueIndex:idx_device_fingerprint"`
	MACHash           string  `gorm:"size:64;uniqueIndex:idx_device_fingerprint"`
	FCDCertHash       string  `gorm:"size:64;uniqueIndex:idx_device_fingerprint"`
	CertificateHash   string  `gorm:"size:64;index"`
	LinkedPIDs        PIDList `gorm:"type:text;serializer:json"`
	AccessLevel       int     `gorm:"default:0"`
	ServerAccessLevel string  `gorm:"size:8;default:prod"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type PIDList []uint32

// Banned reports whether the device has been flagged out of service.
func (d *Device) Banned() bool {
	return d.AccessLevel < 0
}

// HasLinkedPID reports whether an account has authenticated from this
// device before.
func (d *Device) HasLinkedPID(pid uint32) bool {
	return slices.Contains(d.LinkedPIDs, pid)
}
