package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/retendo/account/internal/domain"
)

func TestDeviceRepositoryLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviceRepository(db)

	d := &domain.Device{
		Model:           domain.ModelCTR,
		DeviceID:        0x0A1B2C3D,
		Serial:          "CW404567890",
		Environment:     "L1",
		MACHash:         "machash",
		FCDCertHash:     "fcdhash",
		CertificateHash: "certhash",
		LinkedPIDs:      domain.PIDList{1000000001},
	}
	if err := repo.Create(d); err != nil {
		t.Fatalf("create device: %v", err)
	}

	got, err := repo.FindBySerial("CW404567890")
	if err != nil {
		t.Fatalf("find by serial: %v", err)
	}
	if got.DeviceID != d.DeviceID {
		t.Fatalf("unexpected device: %+v", got)
	}
	if !got.HasLinkedPID(1000000001) {
		t.Fatal("linked pid list did not survive the round trip")
	}

	got, err = repo.FindByCertificateHash("certhash")
	if err != nil {
		t.Fatalf("find by certificate hash: %v", err)
	}
	if got.Serial != d.Serial {
		t.Fatalf("unexpected device: %+v", got)
	}

	got, err = repo.FindByFingerprint(domain.ModelCTR, "CW404567890", "L1", "machash", "fcdhash")
	if err != nil {
		t.Fatalf("find by fingerprint: %v", err)
	}
	if got.ID != d.ID {
		t.Fatalf("fingerprint lookup found a different record: %+v", got)
	}

	if _, err := repo.FindBySerial("CW999999999"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestDeviceRepositoryUpdateBackfillsCertificateHash(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviceRepository(db)

	d := &domain.Device{
		Model:       domain.ModelCTR,
		Serial:      "CW104567890",
		Environment: "L1",
		MACHash:     "mac-a",
		FCDCertHash: "fcd-a",
	}
	if err := repo.Create(d); err != nil {
		t.Fatalf("create device: %v", err)
	}

	d.CertificateHash = "backfilled"
	if err := repo.Update(d); err != nil {
		t.Fatalf("update device: %v", err)
	}

	got, err := repo.FindByCertificateHash("backfilled")
	if err != nil {
		t.Fatalf("find after backfill: %v", err)
	}
	if got.ID != d.ID {
		t.Fatalf("unexpected device: %+v", got)
	}
}

func TestDeviceRepositoryFingerprintUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeviceRepository(db)

	d := &domain.Device{
		Model:       domain.ModelWUP,
		Serial:      "WUP123456789",
		Environment: "L1",
		MACHash:     "mac",
		FCDCertHash: "fcd",
	}
	if err := repo.Create(d); err != nil {
		t.Fatalf("create device: %v", err)
	}

	dup := &domain.Device{
		Model:       domain.ModelWUP,
		Serial:      "WUP123456789",
		Environment: "L1",
		MACHash:     "mac",
		FCDCertHash: "fcd",
	}
	if err := repo.Create(dup); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected ErrDuplicatedKey, got %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
