package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/marius4lui/toolbox-links/internal/httpx"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// UserFrom extracts the authenticated user from context.
// The second return value is false for guest requests.
func UserFrom(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey).(User)
	return u, ok
}

// WithUser attaches a user to the context. Exposed for tests.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// Returns "" when the header is absent or not a bearer scheme.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return h[len(prefix):]
}

// Require rejects requests without a valid bearer token with 401.
func Require(v Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
					"Authentication required", nil)
				return
			}

			user, err := v.Verify(r.Context(), token)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
					"Invalid or expired token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// Optional attaches a user when a valid bearer token is present and otherwise
// lets the request continue as a guest. An invalid token degrades to guest
// rather than failing the request.
func Optional(v Verifier) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token != "" {
				if user, err := v.Verify(r.Context(), token); err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
