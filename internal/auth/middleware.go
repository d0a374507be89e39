package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
)

type contextKey string

const userIDContextKey contextKey = "auth.user_id"

// Middleware is the single authentication enforcement point. It extracts the
// bearer token from the request, resolves it through the lifecycle service
// and attaches the principal's user ID to the request context. Downstream
// handlers never inspect tokens themselves.
func Middleware(service *Service, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		userID, err := service.Validate(r.Context(), raw)
		if err != nil {
			if !isAuthError(err) {
				sentry.CaptureException(err)
			}
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID attaches an authenticated principal to a context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserID returns the authenticated principal attached by Middleware.
func UserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}

// tokenFromRequest locates the access token in the access_token cookie or
// the Authorization header. An optional "Bearer " prefix is stripped in
// either location.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		if value := stripBearerPrefix(cookie.Value); value != "" {
			return value
		}
	}

	return stripBearerPrefix(r.Header.Get("Authorization"))
}

func stripBearerPrefix(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 7 && strings.EqualFold(value[:7], "Bearer ") {
		value = value[7:]
	}
	return strings.TrimSpace(value)
}

func isAuthError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrUnexpectedSigningMethod) ||
		errors.Is(err, ErrInvalidSession)
}
