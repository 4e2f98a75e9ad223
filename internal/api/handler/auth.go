package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/fiteval/internal/api/apierr"
	"github.com/mcoot/fiteval/internal/api/middleware"
	"github.com/mcoot/fiteval/internal/api/request"
	"github.com/mcoot/fiteval/internal/api/response"
	"github.com/mcoot/fiteval/internal/metrics"
	"github.com/mcoot/fiteval/internal/model"
	"github.com/mcoot/fiteval/internal/services/auth"
)

// CookieConfig controls the session cookie
type CookieConfig struct {
	Secure bool `env:"COOKIE_SECURE, default=false"`
}

// AuthHandler handles signup, login and logout
type AuthHandler struct {
	authService *auth.Service
	cookie      CookieConfig
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

// Signup handles POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	req, err := request.DecodeCredentials(w, r)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "failure").Inc()
		apierr.WriteError(w, apierr.NewInvalidAuthRequestError(err.Error()))
		return
	}

	if err := h.authService.Signup(r.Context(), req.Username, req.Password); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "failure").Inc()
		h.logUnexpected(r, "signup failed", err)
		apierr.WriteError(w, err)
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("signup", "success").Inc()
	response.JSON(w, http.StatusOK, response.AuthResult{Success: true, Message: "Signup successful"})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := request.DecodeCredentials(w, r)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		apierr.WriteError(w, apierr.NewInvalidAuthRequestError(err.Error()))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		h.logUnexpected(r, "login failed", err)
		apierr.WriteError(w, err)
		return
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	http.SetCookie(w, h.sessionCookie(session))
	response.JSON(w, http.StatusOK, response.AuthResult{
		Success:      true,
		Message:      "Login successful",
		SessionToken: session.Token,
	})
}

// Logout handles POST /logout. It succeeds whether or not a session exists.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.ExtractToken(r)); err != nil {
		h.logUnexpected(r, "logout failed", err)
		apierr.WriteError(w, err)
		return
	}

	http.SetCookie(w, h.clearedCookie())
	response.JSON(w, http.StatusOK, response.AuthResult{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) sessionCookie(session *model.Session) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) clearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// logUnexpected logs errors that map to a 5xx; client mistakes are not logged
func (h *AuthHandler) logUnexpected(r *http.Request, msg string, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg, "error", err)
	}
}
