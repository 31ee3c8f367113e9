package handler

import (
	"encoding/xml"
	"errors"
	"log/slog"
	"net/http"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/http/middleware"
	"github.com/retendo/account/internal/http/response"
	"github.com/retendo/account/internal/repository"
	"github.com/retendo/account/internal/service"
)

type oauthTokenDocument struct {
	XMLName     xml.Name `xml:"OAuth20"`
	AccessToken struct {
		Token        string `xml:"token"`
		RefreshToken string `xml:"refresh_token"`
		ExpiresIn    int    `xml:"expires_in"`
	} `xml:"access_token"`
}

// OAuthHandler serves the console OAuth token grant. Routes carrying it
// must run behind console status verification.
type OAuthHandler struct {
	auth    *service.AccountAuthenticator
	issuer  *service.TokenIssuer
	devices repository.DeviceRepository
	logger  *slog.Logger
}

func NewOAuthHandler(auth *service.AccountAuthenticator, issuer *service.TokenIssuer, devices repository.DeviceRepository, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{auth: auth, issuer: issuer, devices: devices, logger: logger}
}

func (h *OAuthHandler) GenerateAccessToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.XMLErrorWithCause(w, http.StatusBadRequest, "grant_type", "0004", "Invalid Grant Type")
		return
	}

	var account *domain.RNID
	var err error

	switch r.PostFormValue("grant_type") {
	case "password":
		username := r.PostFormValue("user_id")
		password := r.PostFormValue("password")
		if username == "" {
			response.XMLErrorWithCause(w, http.StatusBadRequest, "user_id", "0002", "user_id format is invalid")
			return
		}
		if password == "" {
			response.XMLErrorWithCause(w, http.StatusBadRequest, "password", "0002", "password format is invalid")
			return
		}
		account, err = h.auth.AuthenticateCredentials(r.Context(), username, password)
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.XMLError(w, http.StatusBadRequest, "0106", "Invalid account ID or password")
			return
		}
	case "refresh_token":
		refreshToken := r.PostFormValue("refresh_token")
		if refreshToken == "" {
			response.XMLErrorWithCause(w, http.StatusBadRequest, "refresh_token", "0106", "Invalid Refresh Token")
			return
		}
		account, err = h.auth.AuthenticateBearer(r.Context(), refreshToken, true)
		if err == nil && account == nil {
			response.XMLErrorWithCause(w, http.StatusBadRequest, "refresh_token", "0106", "Invalid Refresh Token")
			return
		}
	default:
		response.XMLErrorWithCause(w, http.StatusBadRequest, "grant_type", "0004", "Invalid Grant Type")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountDeleted):
			response.XMLError(w, http.StatusBadRequest, "0112", account.Username)
		case errors.Is(err, service.ErrAccountBanned):
			response.XMLError(w, http.StatusBadRequest, "0122", "Device has been banned by game server")
		default:
			h.logger.Error("oauth grant failed", "error", err)
			response.XMLError(w, http.StatusInternalServerError, "2001", "Internal server error")
		}
		return
	}

	h.linkDevice(r, account)

	pair, err := h.issuer.OAuthTokens(r.Context(), account)
	if err != nil {
		h.logger.Error("oauth token mint failed", "error", err)
		response.XMLError(w, http.StatusInternalServerError, "2001", "Internal server error")
		return
	}

	var doc oauthTokenDocument
	doc.AccessToken.Token = pair.AccessToken
	doc.AccessToken.RefreshToken = pair.RefreshToken
	doc.AccessToken.ExpiresIn = pair.ExpiresIn
	response.XML(w, http.StatusOK, doc)
}

// linkDevice records the account against the authenticating console, so
// later exchanges can verify the pairing. Only the family without the NASC
// registration path links here.
func (h *OAuthHandler) linkDevice(r *http.Request, account *domain.RNID) {
	device := middleware.DeviceFromContext(r.Context())
	if device == nil || device.Model != domain.ModelWUP || device.HasLinkedPID(account.PID) {
		return
	}
	device.LinkedPIDs = append(device.LinkedPIDs, account.PID)
	if err := h.devices.Update(device); err != nil {
		h.logger.Error("device link failed", "error", err, "pid", account.PID)
	}
}
