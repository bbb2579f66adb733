package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ahartwell/graphrunner/pkg/middleware"
	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/runtime"
)

// handleListWorkflows handles listing workflows for the current account
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	workflows, err := s.workflows.ListWorkflows(accountID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, workflows)
}

// handleCreateWorkflow handles workflow creation
func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	workflow, err := s.workflows.CreateWorkflow(accountID, req.Name, req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, workflow)
}

// handleGetWorkflow handles retrieving a workflow
func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	workflow, err := s.workflows.GetWorkflow(accountID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, workflow)
}

// handleUpdateWorkflow handles updating a workflow's name and description
func (s *Server) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	workflow, err := s.workflows.UpdateWorkflow(accountID, mux.Vars(r)["id"], req.Name, req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, workflow)
}

// handleDeleteWorkflow handles deleting a workflow with its nodes and edges
func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	if err := s.workflows.DeleteWorkflow(accountID, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleNodeCatalog returns the UI metadata for every supported node type
func (s *Server) handleNodeCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, runtime.Catalog())
}

// handleListNodes handles listing a workflow's nodes in creation order
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	nodes, err := s.workflows.ListNodes(accountID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, nodes)
}

// handleCreateNode handles adding a node to a workflow
func (s *Server) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Type models.NodeType        `json:"type"`
		Data map[string]interface{} `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	node, err := s.workflows.AddNode(accountID, mux.Vars(r)["id"], req.Type, req.Data)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, node)
}

// handleGetNode handles retrieving a node
func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	node, err := s.workflows.GetNode(accountID, vars["id"], vars["nodeId"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, node)
}

// handleUpdateNode handles replacing a node's data
func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Data map[string]interface{} `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	node, err := s.workflows.UpdateNode(accountID, vars["id"], vars["nodeId"], req.Data)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, node)
}

// handleDeleteNode handles deleting a node and any edges touching it
func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	if err := s.workflows.DeleteNode(accountID, vars["id"], vars["nodeId"]); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListEdges handles listing a workflow's edges in creation order
func (s *Server) handleListEdges(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	edges, err := s.workflows.ListEdges(accountID, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, edges)
}

// handleCreateEdge handles adding an edge between two nodes
func (s *Server) handleCreateEdge(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		SourceNodeID string `json:"source_node_id"`
		TargetNodeID string `json:"target_node_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	edge, err := s.workflows.AddEdge(accountID, mux.Vars(r)["id"], req.SourceNodeID, req.TargetNodeID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, edge)
}

// handleDeleteEdge handles deleting an edge
func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	if err := s.workflows.DeleteEdge(accountID, vars["id"], vars["edgeId"]); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
