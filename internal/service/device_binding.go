package service

import (
	"context"
	"errors"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/nintendo"
	"github.com/retendo/account/internal/observability"
	"github.com/retendo/account/internal/repository"
)

var (
	ErrUnlinkedDevice     = errors.New("device is not linked to an account")
	ErrIntegrityViolation = errors.New("device identity integrity violation")
	ErrDeviceBanned       = errors.New("device is banned")
)

// ConsoleIdentity is the device identity a console asserts about itself on
// each request, assembled from headers by the HTTP layer.
type ConsoleIdentity struct {
	DeviceID    uint32
	Serial      string
	Environment string
	Certificate *nintendo.Certificate
}

// DeviceBinder verifies that the identity a console asserts matches the
// stored device record, and moves the record through its lifecycle:
// unknown, known without a certificate hash, known and certified, banned.
type DeviceBinder struct {
	devices repository.DeviceRepository
}

func NewDeviceBinder(devices repository.DeviceRepository) *DeviceBinder {
	return &DeviceBinder{devices: devices}
}

// VerifyConsole checks a console identity against the device store.
//
// The certificate hash is the authoritative key once known. A serial that
// disagrees with the record matched by certificate hash, or a header device
// ID that disagrees with the one embedded in the certificate, is treated as
// spoofing rather than as a lookup miss.
func (b *DeviceBinder) VerifyConsole(ctx context.Context, ident ConsoleIdentity) (*domain.Device, error) {
	cert := ident.Certificate
	if cert == nil || !cert.Valid {
		observability.RecordIntegrityViolation(ctx, "invalid_certificate")
		return nil, ErrIntegrityViolation
	}

	if certDeviceID, ok := cert.DeviceID(); ok && ident.DeviceID != 0 && certDeviceID != ident.DeviceID {
		observability.RecordIntegrityViolation(ctx, "device_id_mismatch")
		return nil, ErrIntegrityViolation
	}

	certHash := cert.Hash()

	bySerial, err := b.devices.FindBySerial(ident.Serial)
	switch {
	case err == nil:
		if bySerial.CertificateHash == "" {
			bySerial.CertificateHash = certHash
			if err := b.devices.Update(bySerial); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, repository.ErrDeviceNotFound):
		if cert.ConsoleType == nintendo.Console3DS {
			return nil, ErrUnlinkedDevice
		}
		created, err := b.registerWiiU(ctx, ident, certHash)
		if err != nil {
			return nil, err
		}
		bySerial = created
	default:
		return nil, err
	}

	device, err := b.devices.FindByCertificateHash(certHash)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			// Certificate hash belongs to another record than the serial
			// resolved; fall back to the serial-matched record.
			device = bySerial
		} else {
			return nil, err
		}
	}

	if device.Serial != ident.Serial {
		observability.RecordIntegrityViolation(ctx, "serial_mismatch")
		return nil, ErrIntegrityViolation
	}

	if device.Banned() {
		return nil, ErrDeviceBanned
	}

	return device, nil
}

func (b *DeviceBinder) registerWiiU(ctx context.Context, ident ConsoleIdentity, certHash string) (*domain.Device, error) {
	device := &domain.Device{
		Model:           domain.ModelWUP,
		DeviceID:        ident.DeviceID,
		Serial:          ident.Serial,
		Environment:     ident.Environment,
		CertificateHash: certHash,
	}
	if err := b.devices.Create(device); err != nil {
		return nil, err
	}
	observability.RecordDeviceRegistration(ctx, string(domain.ModelWUP))
	return device, nil
}
