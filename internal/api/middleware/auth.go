package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/fiteval/internal/api/apierr"
	"github.com/mcoot/fiteval/internal/model"
	"github.com/mcoot/fiteval/internal/services/auth"
)

// SessionCookie is the cookie carrying the session token
const SessionCookie = "session"

type contextKey string

const sessionContextKey contextKey = "session"

// Auth creates authentication middleware.
// Requests without a live session never reach next: browsers (Accept: text/html)
// are redirected to loginPath, other clients get a 401 JSON error.
func Auth(authService *auth.Service, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := authService.Authenticate(r.Context(), ExtractToken(r))
			if err != nil {
				if loginPath != "" && wantsHTML(r) {
					http.Redirect(w, r, loginPath, http.StatusSeeOther)
					return
				}
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken extracts the session token from the request
func ExtractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		return cookie.Value
	}

	return ""
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

// MustGetSession returns the authenticated session or panics
func MustGetSession(ctx context.Context) *model.Session {
	session := GetSession(ctx)
	if session == nil {
		panic("no session in context - auth middleware not applied?")
	}
	return session
}
