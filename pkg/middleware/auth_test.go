package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/auth"
)

// stubAccountService accepts one token and one username/password pair
type stubAccountService struct {
	token    string
	username string
	password string
}

func (s *stubAccountService) Authenticate(username, password string) (string, error) {
	if username == s.username && password == s.password {
		return "acct-1", nil
	}
	return "", errors.New("authentication failed")
}

func (s *stubAccountService) ValidateToken(token string) (string, error) {
	if token == s.token {
		return "acct-1", nil
	}
	return "", errors.New("invalid token")
}

func (s *stubAccountService) CreateAccount(username, password string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *stubAccountService) DeleteAccount(accountID string) error {
	return errors.New("not implemented")
}

func (s *stubAccountService) GetAccount(accountID string) (auth.Account, error) {
	return auth.Account{}, errors.New("not implemented")
}

func (s *stubAccountService) ListAccounts() ([]auth.Account, error) {
	return nil, errors.New("not implemented")
}

func newTestAuthMiddleware() *AuthMiddleware {
	return NewAuthMiddleware(&stubAccountService{
		token:    "valid-token",
		username: "alice",
		password: "secret",
	})
}

// echoAccount responds with the account ID Authenticate resolved
func echoAccount() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := GetAccountID(r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(accountID))
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("valid bearer token", func(t *testing.T) {
		m := newTestAuthMiddleware()
		req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		rec := httptest.NewRecorder()

		m.Authenticate(echoAccount()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acct-1", rec.Body.String())
	})

	t.Run("invalid bearer token", func(t *testing.T) {
		m := newTestAuthMiddleware()
		req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()

		m.Authenticate(echoAccount()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid basic credentials", func(t *testing.T) {
		m := newTestAuthMiddleware()
		req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		req.SetBasicAuth("alice", "secret")
		rec := httptest.NewRecorder()

		m.Authenticate(echoAccount()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acct-1", rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		m := newTestAuthMiddleware()
		req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		rec := httptest.NewRecorder()

		m.Authenticate(echoAccount()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Authorization header required")
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		m := newTestAuthMiddleware()
		req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		req.Header.Set("Authorization", "Digest abc")
		rec := httptest.NewRecorder()

		m.Authenticate(echoAccount()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Unsupported authentication method")
	})

	t.Run("options passes through without credentials", func(t *testing.T) {
		m := newTestAuthMiddleware()
		req := httptest.NewRequest(http.MethodOptions, "/v1/workflows", nil)
		rec := httptest.NewRecorder()

		called := false
		m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})).ServeHTTP(rec, req)

		assert.True(t, called)
	})

	t.Run("repeated failures from one address are throttled", func(t *testing.T) {
		m := newTestAuthMiddleware()

		for i := 0; i < authFailureLimit; i++ {
			req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
			req.RemoteAddr = "10.0.0.9:4242"
			req.Header.Set("Authorization", "Bearer wrong")
			rec := httptest.NewRecorder()

			m.Authenticate(echoAccount()).ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		req.RemoteAddr = "10.0.0.9:4242"
		req.Header.Set("Authorization", "Bearer valid-token")
		rec := httptest.NewRecorder()

		m.Authenticate(echoAccount()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		// Other addresses are unaffected
		other := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		other.RemoteAddr = "10.0.0.10:4242"
		other.Header.Set("Authorization", "Bearer valid-token")
		otherRec := httptest.NewRecorder()

		m.Authenticate(echoAccount()).ServeHTTP(otherRec, other)
		assert.Equal(t, http.StatusOK, otherRec.Code)
	})
}

func TestRequireAccount(t *testing.T) {
	t.Run("passes with account in context", func(t *testing.T) {
		m := newTestAuthMiddleware()
		req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		rec := httptest.NewRecorder()

		m.Authenticate(RequireAccount(echoAccount())).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects without account", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/workflows", nil)
		rec := httptest.NewRecorder()

		RequireAccount(echoAccount()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("limits after repeated events", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		assert.False(t, limiter.IsLimited("client"))
		limiter.Record("client")
		limiter.Record("client")
		assert.False(t, limiter.IsLimited("client"))
		limiter.Record("client")
		assert.True(t, limiter.IsLimited("client"))
	})

	t.Run("clients are independent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)

		limiter.Record("first")
		assert.True(t, limiter.IsLimited("first"))
		assert.False(t, limiter.IsLimited("second"))
	})

	t.Run("events expire with the window", func(t *testing.T) {
		limiter := NewRateLimiter(1, 10*time.Millisecond)

		limiter.Record("client")
		require.True(t, limiter.IsLimited("client"))

		time.Sleep(20 * time.Millisecond)
		assert.False(t, limiter.IsLimited("client"))
	})
}
