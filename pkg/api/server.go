// Package api exposes the graphrunner HTTP API: accounts and login,
// workflow/node/edge CRUD, LLM provider management and synchronous
// workflow executions, all under /api/v1.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ahartwell/graphrunner/pkg/auth"
	"github.com/ahartwell/graphrunner/pkg/config"
	"github.com/ahartwell/graphrunner/pkg/middleware"
	"github.com/ahartwell/graphrunner/pkg/registry"
	"github.com/ahartwell/graphrunner/pkg/runtime"
	"github.com/ahartwell/graphrunner/pkg/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         *config.Config
	router         *mux.Router
	server         *http.Server
	workflows      *registry.WorkflowRegistry
	runtime        *runtime.Runtime
	accountService auth.AccountService
	providers      storage.ProviderStore
	newLLMClient   runtime.LLMClientFactory
	loginLimiter   *middleware.RateLimiter
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, workflows *registry.WorkflowRegistry, rt *runtime.Runtime, accountService auth.AccountService, providers storage.ProviderStore, newLLMClient runtime.LLMClientFactory) *Server {
	s := &Server{
		config:         cfg,
		router:         mux.NewRouter(),
		workflows:      workflows,
		runtime:        rt,
		accountService: accountService,
		providers:      providers,
		newLLMClient:   newLLMClient,
		loginLimiter:   middleware.NewRateLimiter(10, time.Minute),
	}

	s.setupRoutes()
	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting HTTP server on %s", addr)

	var err error
	if s.config.Server.TLS.Enabled {
		err = s.server.ListenAndServeTLS(
			s.config.Server.TLS.CertFile,
			s.config.Server.TLS.KeyFile,
		)
	} else {
		err = s.server.ListenAndServe()
	}

	// If the server was shut down gracefully, this error is expected
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the server's root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Create authentication middleware
	authMiddleware := middleware.NewAuthMiddleware(s.accountService)

	// API router with version prefix
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Public routes (no authentication required)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost, http.MethodOptions)

	// Account routes
	accounts := api.PathPrefix("/accounts").Subrouter()
	accounts.HandleFunc("", s.handleCreateAccount).Methods(http.MethodPost, http.MethodOptions)

	// Authenticated routes
	authenticated := api.PathPrefix("").Subrouter()
	authenticated.Use(authMiddleware.Authenticate)
	authenticated.Use(middleware.RequireAccount)

	// Account management routes (authenticated)
	accountsMgmt := authenticated.PathPrefix("/accounts").Subrouter()
	accountsMgmt.HandleFunc("/me", s.handleGetCurrentAccount).Methods(http.MethodGet, http.MethodOptions)

	// Node catalog, shared by every workflow
	authenticated.HandleFunc("/nodes/catalog", s.handleNodeCatalog).Methods(http.MethodGet, http.MethodOptions)

	// Workflow routes
	workflows := authenticated.PathPrefix("/workflows").Subrouter()
	workflows.HandleFunc("", s.handleListWorkflows).Methods(http.MethodGet, http.MethodOptions)
	workflows.HandleFunc("", s.handleCreateWorkflow).Methods(http.MethodPost, http.MethodOptions)
	workflows.HandleFunc("/{id}", s.handleGetWorkflow).Methods(http.MethodGet, http.MethodOptions)
	workflows.HandleFunc("/{id}", s.handleUpdateWorkflow).Methods(http.MethodPut, http.MethodOptions)
	workflows.HandleFunc("/{id}", s.handleDeleteWorkflow).Methods(http.MethodDelete, http.MethodOptions)

	// Node routes
	workflows.HandleFunc("/{id}/nodes", s.handleListNodes).Methods(http.MethodGet, http.MethodOptions)
	workflows.HandleFunc("/{id}/nodes", s.handleCreateNode).Methods(http.MethodPost, http.MethodOptions)
	workflows.HandleFunc("/{id}/nodes/{nodeId}", s.handleGetNode).Methods(http.MethodGet, http.MethodOptions)
	workflows.HandleFunc("/{id}/nodes/{nodeId}", s.handleUpdateNode).Methods(http.MethodPut, http.MethodOptions)
	workflows.HandleFunc("/{id}/nodes/{nodeId}", s.handleDeleteNode).Methods(http.MethodDelete, http.MethodOptions)

	// Edge routes
	workflows.HandleFunc("/{id}/edges", s.handleListEdges).Methods(http.MethodGet, http.MethodOptions)
	workflows.HandleFunc("/{id}/edges", s.handleCreateEdge).Methods(http.MethodPost, http.MethodOptions)
	workflows.HandleFunc("/{id}/edges/{edgeId}", s.handleDeleteEdge).Methods(http.MethodDelete, http.MethodOptions)

	// Execution routes
	workflows.HandleFunc("/{id}/executions", s.handleCreateExecution).Methods(http.MethodPost, http.MethodOptions)
	workflows.HandleFunc("/{id}/executions", s.handleListExecutions).Methods(http.MethodGet, http.MethodOptions)
	authenticated.HandleFunc("/executions/{id}", s.handleGetExecution).Methods(http.MethodGet, http.MethodOptions)

	// Provider routes
	providers := authenticated.PathPrefix("/providers").Subrouter()
	providers.HandleFunc("", s.handleListProviders).Methods(http.MethodGet, http.MethodOptions)
	providers.HandleFunc("", s.handleCreateProvider).Methods(http.MethodPost, http.MethodOptions)
	providers.HandleFunc("/{id}", s.handleGetProvider).Methods(http.MethodGet, http.MethodOptions)
	providers.HandleFunc("/{id}", s.handleUpdateProvider).Methods(http.MethodPut, http.MethodOptions)
	providers.HandleFunc("/{id}", s.handleDeleteProvider).Methods(http.MethodDelete, http.MethodOptions)
	providers.HandleFunc("/{id}/models", s.handleListProviderModels).Methods(http.MethodGet, http.MethodOptions)

	// CORS middleware for all routes
	s.router.Use(middleware.CORS)
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// writeJSON writes a JSON response with the given status code
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError writes an error response with a status derived from the
// error's kind
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

// statusForError maps domain and storage errors onto HTTP status codes.
// Missing entities are 404, rejected definitions and payloads are 400,
// anything else is an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrWorkflowNotFound),
		errors.Is(err, storage.ErrNodeNotFound),
		errors.Is(err, storage.ErrEdgeNotFound),
		errors.Is(err, storage.ErrProviderNotFound),
		errors.Is(err, storage.ErrExecutionNotFound),
		errors.Is(err, storage.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrInvalidNodeType),
		errors.Is(err, registry.ErrEdgeNodeMismatch),
		errors.Is(err, registry.ErrWorkflowNameEmpty):
		return http.StatusBadRequest
	case runtime.IsDomainError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
