package middleware

import (
	"context"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/nintendo"
)

type contextKey int

const (
	cemuKey contextKey = iota
	certificateKey
	deviceKey
	rnidKey
)

// IsCemu reports whether the request came in through the emulator
// subdomain. Those callers submit tokens as hex.
func IsCemu(ctx context.Context) bool {
	v, _ := ctx.Value(cemuKey).(bool)
	return v
}

func CertificateFromContext(ctx context.Context) *nintendo.Certificate {
	cert, _ := ctx.Value(certificateKey).(*nintendo.Certificate)
	return cert
}

func DeviceFromContext(ctx context.Context) *domain.Device {
	device, _ := ctx.Value(deviceKey).(*domain.Device)
	return device
}

func RNIDFromContext(ctx context.Context) *domain.RNID {
	account, _ := ctx.Value(rnidKey).(*domain.RNID)
	return account
}
