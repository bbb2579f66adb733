package api

import (
	"encoding/json"
	"net/http"

	"github.com/ahartwell/graphrunner/pkg/middleware"
	"github.com/ahartwell/graphrunner/pkg/services"
)

// LoginRequest is the payload for the login endpoint
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response for the login endpoint
type LoginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// handleLogin handles user login and returns a JWT token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// Throttle repeated failed logins per username
	if s.loginLimiter.IsLimited(req.Username) {
		http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
		return
	}

	// Authenticate the user
	accountID, err := s.accountService.Authenticate(req.Username, req.Password)
	if err != nil {
		s.loginLimiter.Record(req.Username)
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	// Get the account
	account, err := s.accountService.GetAccount(accountID)
	if err != nil {
		http.Error(w, "Failed to retrieve account", http.StatusInternalServerError)
		return
	}

	// Generate a JWT token
	accountService, ok := s.accountService.(*services.AccountService)
	if !ok {
		http.Error(w, "JWT authentication not supported", http.StatusInternalServerError)
		return
	}

	token, err := accountService.GenerateJWT(accountID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	// Return the token
	s.writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		AccountID: accountID,
		Username:  account.Username,
	})
}

// handleCreateAccount handles account creation
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	accountID, err := s.accountService.CreateAccount(req.Username, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	account, err := s.accountService.GetAccount(accountID)
	if err != nil {
		http.Error(w, "Failed to retrieve account", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusCreated, account)
}

// handleGetCurrentAccount handles retrieving the current account
func (s *Server) handleGetCurrentAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	account, err := s.accountService.GetAccount(accountID)
	if err != nil {
		http.Error(w, "Failed to retrieve account", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, account)
}
