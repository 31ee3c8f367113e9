package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/http/response"
	"github.com/retendo/account/internal/observability"
	"github.com/retendo/account/internal/service"
)

// RNIDAuth resolves the Authorization header to a network account and
// stores it in the request context. Requests without credentials pass
// through unauthenticated; handlers that require an account reject them.
func RNIDAuth(auth *service.AccountAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, credential, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || (scheme != "Basic" && scheme != "Bearer") {
				next.ServeHTTP(w, r)
				return
			}

			var account *domain.RNID
			var err error
			if scheme == "Basic" {
				account, err = auth.AuthenticateBasic(r.Context(), credential)
			} else {
				account, err = auth.AuthenticateBearer(r.Context(), credential, IsCemu(r.Context()))
			}
			if err != nil {
				switch {
				case errors.Is(err, service.ErrAccountDeleted):
					response.XMLError(w, http.StatusBadRequest, "0112", account.Username)
				case errors.Is(err, service.ErrAccountBanned):
					observability.Audit(r, "banned_account_rejected")
					response.XMLError(w, http.StatusBadRequest, "0122", "Device has been banned by game server")
				case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrMalformedAuth):
					response.XMLError(w, http.StatusUnauthorized, "1105", "Email address, username, or password, is not valid")
				default:
					logger.Error("credential resolution failed", "error", err)
					response.XMLErrorWithCause(w, http.StatusInternalServerError, "access_token", "0005", "Invalid access token")
				}
				return
			}
			if account == nil {
				if scheme == "Bearer" {
					response.XMLErrorWithCause(w, http.StatusUnauthorized, "access_token", "0005", "Invalid access token")
				} else {
					response.XMLError(w, http.StatusUnauthorized, "1105", "Email address, username, or password, is not valid")
				}
				return
			}

			ctx := context.WithValue(r.Context(), rnidKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
