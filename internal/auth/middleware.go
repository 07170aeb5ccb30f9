package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is unexported so no other package can read or shadow our values.
type contextKey string

const userIDKey contextKey = "userID"

// CookieName is the cookie a browser client may carry the session token in.
const CookieName = "token"

// ErrNoToken means the request carried neither a Bearer header nor a token cookie.
var ErrNoToken = errors.New("auth: no token")

// RequireAuth rejects requests without a valid session token.
//
// TOKEN SOURCES (first match wins):
//  1. Authorization: Bearer <jwt>   (API clients)
//  2. Cookie: token=<jwt>           (browsers)
//
// On success the user id is stored in the request context; read it with
// UserIDFromContext. On failure unauthorized is called so the caller controls the
// error body (the handler package renders its usual JSON error).
func RequireAuth(tokens *TokenService, unauthorized func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				unauthorized(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, or ("", false) for an
// anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && token != "" {
			return tokens.Validate(strings.TrimSpace(token))
		}
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", ErrNoToken
	}
	return tokens.Validate(cookie.Value)
}
