package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/retendo/account/internal/http/handler"
	"github.com/retendo/account/internal/http/middleware"
	"github.com/retendo/account/internal/http/response"
	"github.com/retendo/account/internal/service"
)

type Dependencies struct {
	NASCHandler     *handler.NASCHandler
	ProviderHandler *handler.ProviderHandler
	OAuthHandler    *handler.OAuthHandler
	DevicesHandler  *handler.DevicesHandler

	DeviceBinder  *service.DeviceBinder
	Authenticator *service.AccountAuthenticator

	ClientCredentials map[string]string
	NASCRateLimitRPM  int
	APIRateLimitRPM   int

	Logger         *slog.Logger
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.CemuDetection)

	nascLimiter := middleware.NewRateLimiter(dep.NASCRateLimitRPM, time.Minute).Middleware()
	apiLimiter := middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware()

	consoleStatus := middleware.ConsoleStatusVerification(dep.DeviceBinder, dep.Logger)
	rnidAuth := middleware.RNIDAuth(dep.Authenticator, dep.Logger)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.With(nascLimiter).Post("/ac", dep.NASCHandler.Exchange)

	r.Route("/v1/api", func(r chi.Router) {
		r.Use(apiLimiter)
		r.Use(middleware.ClientHeaderCheck(dep.ClientCredentials))
		r.Use(middleware.DeviceCertificate)

		r.Route("/oauth20", func(r chi.Router) {
			r.With(consoleStatus).Post("/access_token/generate", dep.OAuthHandler.GenerateAccessToken)
		})

		r.Route("/devices", func(r chi.Router) {
			r.With(consoleStatus).Get("/@current/status", dep.DevicesHandler.CurrentStatus)
		})

		r.Route("/provider", func(r chi.Router) {
			r.Use(rnidAuth)
			r.Get("/service_token/@me", dep.ProviderHandler.ServiceToken)
			r.Get("/nex_token/@me", dep.ProviderHandler.NEXToken)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.XMLErrorWithCause(w, http.StatusNotFound, "", "0008", "Not Found")
	})

	if dep.EnableOTelHTTP {
		return otelhttp.NewHandler(r, "account.http")
	}
	return r
}
