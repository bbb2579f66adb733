// Package middleware provides HTTP middleware for graphrunner.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ahartwell/graphrunner/pkg/auth"
)

type contextKey string

// AccountIDKey carries the authenticated account ID in the request
// context
const AccountIDKey contextKey = "account_id"

// Failed credential checks from one remote address are throttled; the
// per-username login throttle in the API layer is stricter
const (
	authFailureLimit  = 100
	authFailureWindow = time.Minute
)

var errUnsupportedScheme = errors.New("unsupported authentication scheme")
var errMalformedBasic = errors.New("malformed basic credentials")

// AuthMiddleware resolves the account behind each request from its
// Authorization header
type AuthMiddleware struct {
	accountService auth.AccountService
	failures       *RateLimiter
}

// NewAuthMiddleware creates middleware backed by the given account
// service
func NewAuthMiddleware(accountService auth.AccountService) *AuthMiddleware {
	return &AuthMiddleware{
		accountService: accountService,
		failures:       NewRateLimiter(authFailureLimit, authFailureWindow),
	}
}

// Authenticate rejects requests without valid credentials and stores
// the resolved account ID in the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS preflight carries no credentials
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get("Authorization") == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		if m.failures.IsLimited(r.RemoteAddr) {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		accountID, err := m.resolveAccount(r)
		switch {
		case errors.Is(err, errUnsupportedScheme):
			http.Error(w, "Unsupported authentication method", http.StatusUnauthorized)
			return
		case errors.Is(err, errMalformedBasic):
			http.Error(w, "Invalid Authorization header", http.StatusUnauthorized)
			return
		case err != nil:
			m.failures.Record(r.RemoteAddr)
			http.Error(w, "Authentication failed", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), AccountIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveAccount checks the request credentials against the account
// service. Bearer covers both session JWTs and API tokens.
func (m *AuthMiddleware) resolveAccount(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")

	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return m.accountService.ValidateToken(token)
	}

	if strings.HasPrefix(header, "Basic ") {
		username, password, ok := r.BasicAuth()
		if !ok {
			return "", errMalformedBasic
		}
		return m.accountService.Authenticate(username, password)
	}

	return "", errUnsupportedScheme
}

// GetAccountID retrieves the account ID stored by Authenticate
func GetAccountID(r *http.Request) (string, bool) {
	accountID, ok := r.Context().Value(AccountIDKey).(string)
	return accountID, ok
}

// RequireAccount rejects requests that reached a protected route
// without an account ID in the context
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetAccountID(r); !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter counts recorded events per client within a sliding
// window
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a limiter allowing limit events per client
// within window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// IsLimited reports whether the client has reached the limit within
// the current window
func (r *RateLimiter) IsLimited(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.prune(clientID)) >= r.limit
}

// Record counts one event against the client
func (r *RateLimiter) Record(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts[clientID] = append(r.prune(clientID), time.Now())
}

// prune drops events older than the window for the client. Callers
// must hold the mutex.
func (r *RateLimiter) prune(clientID string) []time.Time {
	cutoff := time.Now().Add(-r.window)
	kept := r.attempts[clientID][:0]
	for _, at := range r.attempts[clientID] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(r.attempts, clientID)
		return nil
	}
	r.attempts[clientID] = kept
	return kept
}
