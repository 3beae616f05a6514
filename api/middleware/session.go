package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lumastore/storefront-backend/pkg/logger"
)

const (
	sessionHeader = "X-Session-Id"
	sessionCookie = "sf_session"
)

// Session resolves the checkout session identifier and the tenant for the
// request. Cart and wizard state are keyed by this session; a browser
// without one gets a fresh id echoed back in header and cookie.
func Session(defaultTenantID string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionHeader))
			if sessionID == "" {
				if cookie, err := r.Cookie(sessionCookie); err == nil {
					sessionID = strings.TrimSpace(cookie.Value)
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(sessionHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			ctx = WithTenantID(ctx, defaultTenantID)
			if logg != nil {
				ctx = logg.WithTenantID(ctx, defaultTenantID)
				ctx = logg.WithField(ctx, "session_id", sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
