package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/fiteval/internal/api/apierr"
	"github.com/mcoot/fiteval/internal/api/handler"
	apimw "github.com/mcoot/fiteval/internal/api/middleware"
	"github.com/mcoot/fiteval/internal/api/response"
	"github.com/mcoot/fiteval/internal/middleware"
	"github.com/mcoot/fiteval/internal/services/auth"
)

// DefaultLoginPath is where unauthenticated browsers are sent
const DefaultLoginPath = "/login.html"

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Receiver    handler.AssetReceiver
	Evaluator   handler.Evaluator
	Cookie      handler.CookieConfig

	// LoginPath is the redirect target for unauthenticated HTML clients; empty disables redirects
	LoginPath string
	// MetricsHandler serves /metrics; nil uses the default Prometheus registry
	MetricsHandler http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Cookie, cfg.Logger)
	uploadHandler := handler.NewUploadHandler(cfg.Receiver, cfg.Evaluator, cfg.Logger)

	// Common middleware, outermost first
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	}))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics())

	// Auth routes (no session required)
	r.HandleFunc("/signup", authHandler.Signup).Methods(http.MethodPost)
	r.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)

	// Protected routes; the gate runs before any body is read
	uploads := r.PathPrefix("/upload").Subrouter()
	uploads.Use(apimw.Auth(cfg.AuthService, cfg.LoginPath))
	uploads.HandleFunc("", uploadHandler.Upload).Methods(http.MethodPost)

	// Operational endpoints (no auth)
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusNotFound, response.ErrorResponse{Error: "Not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, response.ErrorResponse{Error: "Method not allowed"})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
