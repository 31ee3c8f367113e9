package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/nintendo"
	"github.com/retendo/account/internal/observability"
	"github.com/retendo/account/internal/repository"
)

const (
	nascActionLogin  = "LOGIN"
	nascActionSvcLoc = "SVCLOC"

	// Title allowed to perform first registration. It always runs against
	// the test tier.
	accountManagementTitleID = "0004013000003202"

	nascDateTimeFormat = "20060102150405"

	nexPasswordLength = 16
)

// NASC error codes. The transport always answers 200; these ride in the
// returncd field.
const (
	nascErrorGeneric     = "null"
	nascErrorBadCert     = "121"
	nascErrorDenied      = "102"
	nascErrorUnavailable = "110"
)

// NASCRequest is a decoded exchange request. Field values arrive
// individually text-encoded on the wire; the HTTP layer decodes them before
// handing them here.
type NASCRequest struct {
	Action      string
	FCDCert     []byte
	Serial      string
	MACAddress  string
	TitleID     string
	Environment string
	UserID      string
	UserIDHMAC  string
	Password    string
}

type nascPair struct {
	key   string
	value string
}

// NASCResponse is an ordered list of form pairs. Order is part of the wire
// contract, and the substituted-alphabet values must not be percent-escaped,
// so encoding is done by hand rather than through url.Values.
type NASCResponse struct {
	pairs []nascPair
}

func (r *NASCResponse) add(key, value string) {
	r.pairs = append(r.pairs, nascPair{key: key, value: nintendo.Base64Encode([]byte(value))})
}

func (r *NASCResponse) addLiteral(key, value string) {
	r.pairs = append(r.pairs, nascPair{key: key, value: value})
}

// ReturnCode reports the encoded returncd field, for logging and metrics.
func (r *NASCResponse) ReturnCode() string {
	for _, p := range r.pairs {
		if p.key == "returncd" {
			if p.value == nascErrorGeneric {
				return nascErrorGeneric
			}
			decoded, err := nintendo.Base64Decode(p.value)
			if err != nil {
				return p.value
			}
			return string(decoded)
		}
	}
	return ""
}

func (r *NASCResponse) Encode() string {
	var b strings.Builder
	for i, p := range r.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	return b.String()
}

// NASCService handles the LOGIN/SVCLOC exchange consoles perform before
// talking to a game server.
type NASCService struct {
	devices     repository.DeviceRepository
	nexAccounts repository.NEXAccountRepository
	servers     *GameServerDirectory
	logger      *slog.Logger
	now         func() time.Time
}

func NewNASCService(devices repository.DeviceRepository, nexAccounts repository.NEXAccountRepository, servers *GameServerDirectory, logger *slog.Logger) *NASCService {
	return &NASCService{
		devices:     devices,
		nexAccounts: nexAccounts,
		servers:     servers,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleExchange runs the full exchange. Every outcome is a well-formed
// response; protocol failures surface in returncd, never as an error.
func (s *NASCService) HandleExchange(ctx context.Context, req NASCRequest) NASCResponse {
	resp := s.exchange(ctx, req)
	observability.RecordNASCRequest(ctx, req.Action, resp.ReturnCode())
	return resp
}

func (s *NASCService) exchange(ctx context.Context, req NASCRequest) NASCResponse {
	if req.Action != nascActionLogin && req.Action != nascActionSvcLoc {
		return s.errorResponse(nascErrorGeneric)
	}

	cert := nintendo.ParseCertificate(req.FCDCert)
	if !cert.Valid {
		return s.errorResponse(nascErrorBadCert)
	}

	if !nintendo.ValidMACAddress(req.MACAddress) {
		return s.errorResponse(nascErrorGeneric)
	}

	model, ok := domain.ModelFromSerial(req.Serial)
	if !ok {
		return s.errorResponse(nascErrorGeneric)
	}

	macHash := hashToBase64([]byte(req.MACAddress))
	fcdCertHash := cert.Hash()

	var pid uint32
	if req.UserID != "" {
		parsed, err := strconv.ParseUint(req.UserID, 10, 32)
		if err != nil {
			return s.errorResponse(nascErrorGeneric)
		}
		pid = uint32(parsed)
	}

	device, err := s.devices.FindByFingerprint(model, req.Serial, req.Environment, macHash, fcdCertHash)
	if err != nil && !errors.Is(err, repository.ErrDeviceNotFound) {
		s.logger.Error("nasc device lookup failed", "error", err)
		return s.errorResponse(nascErrorGeneric)
	}

	if device != nil {
		if device.Banned() {
			return s.errorResponse(nascErrorDenied)
		}
		if pid != 0 && !device.HasLinkedPID(pid) {
			return s.errorResponse(nascErrorDenied)
		}
	}

	if req.TitleID == accountManagementTitleID && req.Password != "" && req.UserID == "" && req.UserIDHMAC == "" {
		registeredPID, err := s.registerAccount(ctx, model, req, macHash, fcdCertHash, device)
		if err != nil {
			s.logger.Error("nasc first registration failed", "error", err)
			return s.errorResponse(nascErrorDenied)
		}
		pid = registeredPID
	}

	account, err := s.nexAccounts.FindByPID(pid)
	if err != nil {
		if !errors.Is(err, repository.ErrNEXAccountNotFound) {
			s.logger.Error("nasc account lookup failed", "error", err)
		}
		return s.errorResponse(nascErrorDenied)
	}
	if account.Banned() {
		return s.errorResponse(nascErrorDenied)
	}

	serverAccessLevel := account.ServerAccessLevel
	if req.TitleID == accountManagementTitleID {
		serverAccessLevel = "test"
	}

	server, err := s.servers.ByTitleID(ctx, req.TitleID, serverAccessLevel)
	if err != nil {
		if !errors.Is(err, repository.ErrGameServerNotFound) {
			s.logger.Error("nasc server lookup failed", "error", err)
		}
		return s.errorResponse(nascErrorUnavailable)
	}
	if server.AESKey == "" || server.MaintenanceMode {
		return s.errorResponse(nascErrorUnavailable)
	}

	// 0.0.0.0:0 is expected for titles with no NEX server; anything else
	// with a dead port is a broken record.
	if req.Action == nascActionLogin && server.Port <= 0 && server.IP != "0.0.0.0" {
		return s.errorResponse(nascErrorUnavailable)
	}

	switch req.Action {
	case nascActionLogin:
		return s.loginResponse(server, model, account.PID, req.TitleID)
	default:
		return s.serviceTokenResponse(server, model, account.PID, req.TitleID)
	}
}

// registerAccount creates the NEX account and device record for a first
// registration, atomically. A PID collision from a concurrent registration
// gets one redraw before giving up.
func (s *NASCService) registerAccount(ctx context.Context, model domain.Model, req NASCRequest, macHash, fcdCertHash string, device *domain.Device) (uint32, error) {
	password, err := generateNEXPassword()
	if err != nil {
		return 0, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		pid, err := s.nexAccounts.GeneratePID()
		if err != nil {
			return 0, err
		}

		account := &domain.NEXAccount{
			DeviceType: "3ds",
			PID:        pid,
			Password:   password,
		}

		target := device
		if target == nil {
			target = &domain.Device{
				Model:       model,
				Serial:      req.Serial,
				Environment: req.Environment,
				MACHash:     macHash,
				FCDCertHash: fcdCertHash,
			}
		}
		target.LinkedPIDs = append(target.LinkedPIDs, pid)

		err = s.nexAccounts.RegisterWithDevice(account, target)
		if err == nil {
			observability.RecordDeviceRegistration(ctx, string(model))
			return pid, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, err
		}
		target.LinkedPIDs = target.LinkedPIDs[:len(target.LinkedPIDs)-1]
	}
	return 0, fmt.Errorf("register account: %w", gorm.ErrDuplicatedKey)
}

func (s *NASCService) loginResponse(server *domain.GameServer, model domain.Model, pid uint32, titleID string) NASCResponse {
	token, err := s.mintToken(server, model, pid, titleID, nintendo.TokenTypeNEX)
	if err != nil {
		s.logger.Error("nasc token mint failed", "error", err)
		return s.errorResponse(nascErrorUnavailable)
	}

	var resp NASCResponse
	resp.add("locator", fmt.Sprintf("%s:%d", server.IP, server.Port))
	resp.add("retry", "0")
	resp.add("returncd", "001")
	resp.add("token", token)
	resp.add("datetime", s.now().Format(nascDateTimeFormat))
	return resp
}

func (s *NASCService) serviceTokenResponse(server *domain.GameServer, model domain.Model, pid uint32, titleID string) NASCResponse {
	token, err := s.mintToken(server, model, pid, titleID, nintendo.TokenTypeService)
	if err != nil {
		s.logger.Error("nasc token mint failed", "error", err)
		return s.errorResponse(nascErrorUnavailable)
	}

	var resp NASCResponse
	resp.add("retry", "0")
	resp.add("returncd", "007")
	resp.add("servicetoken", token)
	resp.add("statusdata", "Y")
	resp.add("svchost", "n/a")
	resp.add("datetime", s.now().Format(nascDateTimeFormat))
	return resp
}

func (s *NASCService) mintToken(server *domain.GameServer, model domain.Model, pid uint32, titleID string, tokenType nintendo.TokenType) (string, error) {
	title, err := strconv.ParseUint(titleID, 16, 64)
	if err != nil {
		return "", fmt.Errorf("parse title id %q: %w", titleID, err)
	}
	key, err := decodeServerKey(server.AESKey)
	if err != nil {
		return "", err
	}

	systemType := nintendo.System3DS
	if model == domain.ModelWUP {
		systemType = nintendo.SystemWiiU
	}

	raw, err := nintendo.EncodeToken(key, nintendo.TokenPayload{
		SystemType: systemType,
		TokenType:  tokenType,
		PID:        pid,
		ExpireTime: uint64(s.now().Add(tokenLifetime).UnixMilli()),
		Extra:      &nintendo.TokenExtra{TitleID: title},
	})
	if err != nil {
		return "", err
	}
	return nintendo.Base64Encode(raw), nil
}

func (s *NASCService) errorResponse(code string) NASCResponse {
	return newNASCError(code, s.now())
}

// GenericNASCError is the failure response for requests too malformed to
// process at all.
func GenericNASCError() NASCResponse {
	return newNASCError(nascErrorGeneric, time.Now())
}

func newNASCError(code string, now time.Time) NASCResponse {
	var resp NASCResponse
	resp.add("retry", "1")
	if code == nascErrorGeneric {
		resp.addLiteral("returncd", nascErrorGeneric)
	} else {
		resp.add("returncd", code)
	}
	resp.add("datetime", now.Format(nascDateTimeFormat))
	return resp
}

func hashToBase64(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

const nexPasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateNEXPassword() (string, error) {
	buf := make([]byte, nexPasswordLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = nexPasswordAlphabet[int(b)%len(nexPasswordAlphabet)]
	}
	return string(buf), nil
}
