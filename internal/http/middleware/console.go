package middleware

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/retendo/account/internal/http/response"
	"github.com/retendo/account/internal/nintendo"
	"github.com/retendo/account/internal/observability"
	"github.com/retendo/account/internal/service"
)

// CemuDetection flags requests arriving through the emulator subdomain.
func CemuDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		isCemu := strings.HasPrefix(host, "c.account.")
		ctx := context.WithValue(r.Context(), cemuKey, isCemu)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientHeaderCheck rejects callers that do not present a known console
// client ID/secret pair, and stamps the legacy response headers consoles
// expect on every reply.
func ClientHeaderCheck(clientCredentials map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Server", "Nintendo 3DS (http)")
			w.Header().Set("X-Nintendo-Date", strconv.FormatInt(time.Now().UnixMilli(), 10))

			clientID := r.Header.Get("X-Nintendo-Client-ID")
			clientSecret := r.Header.Get("X-Nintendo-Client-Secret")
			expected, known := clientCredentials[clientID]
			if clientID == "" || clientSecret == "" || !known || clientSecret != expected {
				response.XMLErrorWithCause(w, http.StatusOK, "client_id", "0004",
					"API application invalid or incorrect application credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DeviceCertificate decodes the device certificate header into the request
// context. A missing header is not an error here; routes that need the
// certificate fail in console status verification instead.
func DeviceCertificate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("X-Nintendo-Device-Cert")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw, err := base64.StdEncoding.DecodeString(header)
		if err != nil {
			raw = nil
		}
		cert := nintendo.ParseCertificate(raw)
		ctx := context.WithValue(r.Context(), certificateKey, cert)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ConsoleStatusVerification runs the device identity checks and stores the
// resolved device record in the request context.
func ConsoleStatusVerification(binder *service.DeviceBinder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cert := CertificateFromContext(r.Context())
			if cert == nil || !cert.Valid {
				response.XMLError(w, http.StatusBadRequest, "0110", "Unlinked device")
				return
			}

			deviceIDHeader := r.Header.Get("X-Nintendo-Device-ID")
			deviceID, err := strconv.ParseUint(deviceIDHeader, 10, 32)
			if deviceIDHeader == "" || err != nil {
				response.XMLError(w, http.StatusBadRequest, "0002", "deviceId format is invalid")
				return
			}

			serial := r.Header.Get("X-Nintendo-Serial-Number")
			if serial == "" {
				response.XMLError(w, http.StatusBadRequest, "0002", "serialNumber format is invalid")
				return
			}

			device, err := binder.VerifyConsole(r.Context(), service.ConsoleIdentity{
				DeviceID:    uint32(deviceID),
				Serial:      serial,
				Environment: r.Header.Get("X-Nintendo-Environment"),
				Certificate: cert,
			})
			if err != nil {
				switch {
				case errors.Is(err, service.ErrUnlinkedDevice):
					response.XMLError(w, http.StatusBadRequest, "0002", "serialNumber format is invalid")
				case errors.Is(err, service.ErrIntegrityViolation):
					observability.Audit(r, "device_integrity_violation", "serial", serial, "device_id", deviceID)
					response.XMLErrorWithCause(w, http.StatusBadRequest, "Bad request", "1600", "Unable to process request")
				case errors.Is(err, service.ErrDeviceBanned):
					observability.Audit(r, "banned_device_rejected", "serial", serial)
					response.XMLError(w, http.StatusBadRequest, "0012", "Device has been banned by game server")
				default:
					logger.Error("console status verification failed", "error", err)
					response.XMLErrorWithCause(w, http.StatusInternalServerError, "Bad request", "1600", "Unable to process request")
				}
				return
			}

			ctx := context.WithValue(r.Context(), deviceKey, device)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
