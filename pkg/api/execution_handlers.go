package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ahartwell/graphrunner/pkg/middleware"
)

// handleCreateExecution runs a workflow synchronously and returns the
// terminal execution record. A run that fails inside the graph still
// comes back as a created record with status failed; only rejected
// payloads, broken graph definitions and missing workflows are errors.
func (s *Server) handleCreateExecution(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		InputData map[string]interface{} `json:"input_data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	execution, err := s.runtime.CreateAndRun(r.Context(), accountID, mux.Vars(r)["id"], req.InputData)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, execution)
}

// handleListExecutions handles listing a workflow's executions
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	executions, err := s.runtime.ListExecutions(accountID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, executions)
}

// handleGetExecution handles retrieving an execution record
func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	execution, err := s.runtime.GetExecution(accountID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, execution)
}
