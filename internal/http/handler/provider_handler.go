package handler

import (
	"encoding/xml"
	"errors"
	"log/slog"
	"net/http"

	"github.com/retendo/account/internal/http/middleware"
	"github.com/retendo/account/internal/http/response"
	"github.com/retendo/account/internal/service"
)

type serviceTokenDocument struct {
	XMLName xml.Name `xml:"service_token"`
	Token   string   `xml:"token"`
}

type nexTokenDocument struct {
	XMLName     xml.Name `xml:"nex_token"`
	Host        string   `xml:"host"`
	NEXPassword string   `xml:"nex_password"`
	PID         uint32   `xml:"pid"`
	Port        int      `xml:"port"`
	Token       string   `xml:"token"`
}

// ProviderHandler serves the authenticated token endpoints games call once
// they hold an OAuth session.
type ProviderHandler struct {
	issuer *service.TokenIssuer
	logger *slog.Logger
}

func NewProviderHandler(issuer *service.TokenIssuer, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{issuer: issuer, logger: logger}
}

func (h *ProviderHandler) ServiceToken(w http.ResponseWriter, r *http.Request) {
	account := middleware.RNIDFromContext(r.Context())
	if account == nil {
		response.XMLErrorWithCause(w, http.StatusBadRequest, "access_token", "0002", "Invalid access token")
		return
	}

	clientID := r.URL.Query().Get("client_id")
	titleID := r.Header.Get("X-Nintendo-Title-ID")
	if clientID == "" || titleID == "" {
		response.XMLError(w, http.StatusOK, "1021", "The requested game server was not found")
		return
	}

	token, err := h.issuer.ServiceToken(r.Context(), account, clientID, titleID, middleware.IsCemu(r.Context()))
	if err != nil {
		h.writeIssuerError(w, err)
		return
	}

	response.XML(w, http.StatusOK, serviceTokenDocument{Token: token})
}

func (h *ProviderHandler) NEXToken(w http.ResponseWriter, r *http.Request) {
	account := middleware.RNIDFromContext(r.Context())
	if account == nil {
		response.XMLErrorWithCause(w, http.StatusBadRequest, "access_token", "0002", "Invalid access token")
		return
	}

	gameServerID := r.URL.Query().Get("game_server_id")
	if gameServerID == "" {
		response.XMLError(w, http.StatusOK, "0118", "Unique ID and Game Server ID are not linked")
		return
	}

	titleID := r.Header.Get("X-Nintendo-Title-ID")
	if titleID == "" {
		response.XMLError(w, http.StatusOK, "1021", "The requested game server was not found")
		return
	}

	grant, err := h.issuer.NEXToken(r.Context(), account, gameServerID, titleID, middleware.IsCemu(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrNoNEXAccount) {
			response.XMLErrorWithCause(w, http.StatusNotFound, "", "0008", "Not Found")
			return
		}
		h.writeIssuerError(w, err)
		return
	}

	response.XML(w, http.StatusOK, nexTokenDocument{
		Host:        grant.Host,
		NEXPassword: grant.Password,
		PID:         grant.PID,
		Port:        grant.Port,
		Token:       grant.Token,
	})
}

func (h *ProviderHandler) writeIssuerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNoGameServer):
		response.XMLError(w, http.StatusOK, "1021", "The requested game server was not found")
	case errors.Is(err, service.ErrGameServerMaintenance):
		response.XMLError(w, http.StatusOK, "2002", "The requested game server is under maintenance")
	default:
		h.logger.Error("token issue failed", "error", err)
		response.XMLError(w, http.StatusInternalServerError, "2001", "Internal server error")
	}
}
