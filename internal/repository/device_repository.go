package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/observability"
)

var ErrDeviceNotFound = errors.New("device not found")

type DeviceRepository interface {
	FindBySerial(serial string) (*domain.Device, error)
	FindByCertificateHash(hash string) (*domain.Device, error)
	FindByFingerprint(model domain.Model, serial, environment, macHash, fcdCertHash string) (*domain.Device, error)
	Create(device *domain.Device) error
	Update(device *domain.Device) error
}

type GormDeviceRepository struct{ db *gorm.DB }

func NewDeviceRepository(db *gorm.DB) DeviceRepository { return &GormDeviceRepository{db: db} }

func (r *GormDeviceRepository) FindBySerial(serial string) (*domain.Device, error) {
	var d domain.Device
	err := r.db.Where("serial = ?", serial).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "device", "find_by_serial", "not_found")
			return nil, ErrDeviceNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "device", "find_by_serial", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "find_by_serial", "success")
	return &d, nil
}

func (r *GormDeviceRepository) FindByCertificateHash(hash string) (*domain.Device, error) {
	var d domain.Device
	err := r.db.Where("certificate_hash = ?", hash).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "device", "find_by_certificate_hash", "not_found")
			return nil, ErrDeviceNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "device", "find_by_certificate_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "find_by_certificate_hash", "success")
	return &d, nil
}

func (r *GormDeviceRepository) FindByFingerprint(model domain.Model, serial, environment, macHash, fcdCertHash string) (*domain.Device, error) {
	var d domain.Device
	err := r.db.
		Where("model = ? AND serial = ? AND environment = ? AND mac_hash = ? AND fcd_cert_hash = ?",
			model, serial, environment, macHash, fcdCertHash).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "device", "find_by_fingerprint", "not_found")
			return nil, ErrDeviceNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "device", "find_by_fingerprint", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "find_by_fingerprint", "success")
	return &d, nil
}

func (r *GormDeviceRepository) Create(device *domain.Device) error {
	err := r.db.Create(device).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "device", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "create", "success")
	return nil
}

func (r *GormDeviceRepository) Update(device *domain.Device) error {
	err := r.db.Save(device).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "device", "update", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "update", "success")
	return nil
}
