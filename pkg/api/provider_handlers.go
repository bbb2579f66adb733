package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ahartwell/graphrunner/pkg/middleware"
	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/runtime"
	"github.com/ahartwell/graphrunner/pkg/storage"
)

// Provider request validation errors
var (
	errProviderNameRequired    = errors.New("provider name is required")
	errProviderTypeUnsupported = errors.New("provider type is not supported")
	errProviderBaseURLRequired = errors.New("provider base_url is required")
)

// providerRequest is the payload for creating or updating an LLM provider
type providerRequest struct {
	Name    string                 `json:"name"`
	Type    models.ProviderType    `json:"type"`
	BaseURL string                 `json:"base_url"`
	Config  map[string]interface{} `json:"config"`
}

// handleListProviders handles listing the account's LLM providers
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	providers, err := s.providers.ListProviders(accountID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, providers)
}

// handleCreateProvider handles registering an LLM provider
func (s *Server) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req providerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Type == "" {
		req.Type = models.ProviderTypeOllama
	}
	if err := validateProviderRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	provider, err := s.providers.SaveProvider(models.Provider{
		AccountID: accountID,
		Name:      req.Name,
		Type:      req.Type,
		BaseURL:   req.BaseURL,
		Config:    req.Config,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, provider)
}

// handleGetProvider handles retrieving an LLM provider
func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	providerID, err := providerIDVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	provider, err := s.providers.GetProvider(accountID, providerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, provider)
}

// handleUpdateProvider handles updating an LLM provider
func (s *Server) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	providerID, err := providerIDVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req providerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	provider, err := s.providers.GetProvider(accountID, providerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if req.Name != "" {
		provider.Name = req.Name
	}
	if req.Type != "" {
		provider.Type = req.Type
	}
	if req.BaseURL != "" {
		provider.BaseURL = req.BaseURL
	}
	if req.Config != nil {
		provider.Config = req.Config
	}
	if err := validateProviderRequest(providerRequest{
		Name:    provider.Name,
		Type:    provider.Type,
		BaseURL: provider.BaseURL,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	provider, err = s.providers.SaveProvider(provider)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, provider)
}

// handleDeleteProvider handles deleting an LLM provider
func (s *Server) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	providerID, err := providerIDVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.providers.DeleteProvider(accountID, providerID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListProviderModels proxies the provider's model listing. A
// provider that cannot be reached is a bad gateway, not a server fault.
func (s *Server) handleListProviderModels(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	providerID, err := providerIDVar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	provider, err := s.providers.GetProvider(accountID, providerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	modelInfos, err := s.newLLMClient(provider).ListModels(r.Context())
	if err != nil {
		mapped := runtime.MapLLMProviderError(err)
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": mapped.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, modelInfos)
}

// providerIDVar parses the integer provider ID path variable
func providerIDVar(r *http.Request) (int64, error) {
	providerID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || providerID <= 0 {
		return 0, storage.ErrProviderNotFound
	}
	return providerID, nil
}

// validateProviderRequest checks the fields shared by create and update
func validateProviderRequest(req providerRequest) error {
	if req.Name == "" {
		return errProviderNameRequired
	}
	if req.Type != models.ProviderTypeOllama {
		return errProviderTypeUnsupported
	}
	if req.BaseURL == "" {
		return errProviderBaseURLRequired
	}
	return nil
}
