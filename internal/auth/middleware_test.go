package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockVerifier implements Verifier for middleware tests.
type mockVerifier struct {
	verifyFunc func(ctx context.Context, token string) (User, error)
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (User, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, token)
	}
	return User{}, errors.New("no verifier configured")
}

func okVerifier(user User) *mockVerifier {
	return &mockVerifier{
		verifyFunc: func(ctx context.Context, token string) (User, error) {
			if token == "good-token" {
				return user, nil
			}
			return User{}, errors.New("invalid token")
		},
	}
}

func TestRequire(t *testing.T) {
	user := User{ID: "user-1", Email: "u@example.com"}

	newHandler := func(captured *User, called *bool) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*called = true
			if u, ok := UserFrom(r.Context()); ok {
				*captured = u
			}
			w.WriteHeader(http.StatusOK)
		})
	}

	t.Run("passes request with valid token", func(t *testing.T) {
		var captured User
		var called bool
		handler := Require(okVerifier(user))(newHandler(&captured, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !called {
			t.Fatal("next handler not called")
		}
		if captured != user {
			t.Errorf("user in context = %+v, want %+v", captured, user)
		}
	})

	t.Run("rejects missing header with 401", func(t *testing.T) {
		var captured User
		var called bool
		handler := Require(okVerifier(user))(newHandler(&captured, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if called {
			t.Error("next handler called despite missing token")
		}
	})

	t.Run("rejects non-bearer scheme with 401", func(t *testing.T) {
		var captured User
		var called bool
		handler := Require(okVerifier(user))(newHandler(&captured, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if called {
			t.Error("next handler called despite bad scheme")
		}
	})

	t.Run("rejects invalid token with 401", func(t *testing.T) {
		var captured User
		var called bool
		handler := Require(okVerifier(user))(newHandler(&captured, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if called {
			t.Error("next handler called despite invalid token")
		}
	})
}

func TestOptional(t *testing.T) {
	user := User{ID: "user-1"}

	t.Run("attaches user for valid token", func(t *testing.T) {
		var captured User
		var hasUser bool
		handler := Optional(okVerifier(user))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured, hasUser = UserFrom(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/create", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if !hasUser {
			t.Fatal("expected user in context")
		}
		if captured != user {
			t.Errorf("user = %+v, want %+v", captured, user)
		}
	})

	t.Run("continues as guest without token", func(t *testing.T) {
		var hasUser bool
		handler := Optional(okVerifier(user))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasUser = UserFrom(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/create", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if hasUser {
			t.Error("unexpected user in guest context")
		}
	})

	t.Run("degrades invalid token to guest", func(t *testing.T) {
		var hasUser bool
		handler := Optional(okVerifier(user))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hasUser = UserFrom(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/create", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if hasUser {
			t.Error("unexpected user in context for invalid token")
		}
	})
}
