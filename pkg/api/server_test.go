package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahartwell/graphrunner/pkg/config"
	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/registry"
	"github.com/ahartwell/graphrunner/pkg/runtime"
	"github.com/ahartwell/graphrunner/pkg/services"
	"github.com/ahartwell/graphrunner/pkg/storage"
	"github.com/ahartwell/graphrunner/pkg/utils"
)

type fakeLLMClient struct {
	response string
	models   []utils.ModelInfo
	err      error
}

func (f *fakeLLMClient) ListModels(ctx context.Context) ([]utils.ModelInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

func (f *fakeLLMClient) Chat(ctx context.Context, model string, messages []utils.ChatMessage) (*utils.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &utils.ChatResponse{
		Model:   model,
		Message: utils.ChatMessage{Role: "assistant", Content: f.response},
		Done:    true,
	}, nil
}

type fakeSearchClient struct {
	payload map[string]interface{}
}

func (f *fakeSearchClient) Search(ctx context.Context, query string) (map[string]interface{}, error) {
	return f.payload, nil
}

type apiTestEnv struct {
	server *httptest.Server
	llm    *fakeLLMClient
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()

	provider := storage.NewMemoryProvider()
	require.NoError(t, provider.Initialize())

	llm := &fakeLLMClient{response: "llm says hi", models: []utils.ModelInfo{{Name: "llama3"}}}
	newLLMClient := func(models.Provider) utils.LLMClient { return llm }
	search := &fakeSearchClient{payload: map[string]interface{}{"Abstract": "summary"}}

	jwtService := services.NewJWTService("test-secret", 1)
	accountService := services.NewAccountService(provider.GetAccountStore(), provider.GetProviderStore(), jwtService, "")
	workflows := registry.NewWorkflowRegistry(provider.GetWorkflowStore(), provider.GetProviderStore())
	handlers := runtime.NewHandlerRegistry(provider.GetProviderStore(), newLLMClient, search)
	rt := runtime.NewRuntime(provider.GetWorkflowStore(), provider.GetExecutionStore(), handlers)

	server := NewServer(config.DefaultConfig(), workflows, rt, accountService, provider.GetProviderStore(), newLLMClient)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &apiTestEnv{server: ts, llm: llm}
}

// doJSON sends a request with an optional bearer token and JSON body and
// returns the status code with the decoded response body.
func (e *apiTestEnv) doJSON(t *testing.T, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+"/api/v1"+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(bytes.TrimSpace(raw)) > 0 && json.Valid(raw) {
		_ = json.Unmarshal(raw, &decoded)
	}

	return resp.StatusCode, decoded
}

// doJSONList is doJSON for endpoints returning a JSON array.
func (e *apiTestEnv) doJSONList(t *testing.T, method, path, token string) (int, []map[string]interface{}) {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+"/api/v1"+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))

	return resp.StatusCode, decoded
}

// registerAndLogin creates an account and returns a session JWT.
func (e *apiTestEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	status, _ := e.doJSON(t, http.MethodPost, "/accounts", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := e.doJSON(t, http.MethodPost, "/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	return token
}

func TestHealthEndpoint(t *testing.T) {
	env := newAPITestEnv(t)

	status, body := env.doJSON(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthFlow(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "testuser")

	t.Run("current account", func(t *testing.T) {
		status, body := env.doJSON(t, http.MethodGet, "/accounts/me", token, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "testuser", body["username"])
	})

	t.Run("missing token rejected", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodGet, "/accounts/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodGet, "/accounts/me", "not-a-token", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodPost, "/login", "", map[string]string{
			"username": "testuser",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("repeated failures are throttled", func(t *testing.T) {
		attempt := func() int {
			status, _ := env.doJSON(t, http.MethodPost, "/login", "", map[string]string{
				"username": "bruteforced",
				"password": "wrong",
			})
			return status
		}

		for i := 0; i < 10; i++ {
			require.Equal(t, http.StatusUnauthorized, attempt())
		}
		assert.Equal(t, http.StatusTooManyRequests, attempt())
	})
}

func TestWorkflowEndpoints(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "testuser")

	status, created := env.doJSON(t, http.MethodPost, "/workflows", token, map[string]string{
		"name":        "My Workflow",
		"description": "demo",
	})
	require.Equal(t, http.StatusCreated, status)
	workflowID, _ := created["id"].(string)
	require.NotEmpty(t, workflowID)

	t.Run("empty name rejected", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodPost, "/workflows", token, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("get", func(t *testing.T) {
		status, body := env.doJSON(t, http.MethodGet, "/workflows/"+workflowID, token, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "My Workflow", body["name"])
	})

	t.Run("unknown workflow is 404", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodGet, "/workflows/missing", token, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("other account cannot see it", func(t *testing.T) {
		otherToken := env.registerAndLogin(t, "otheruser")
		status, _ := env.doJSON(t, http.MethodGet, "/workflows/"+workflowID, otherToken, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("update", func(t *testing.T) {
		status, body := env.doJSON(t, http.MethodPut, "/workflows/"+workflowID, token, map[string]string{
			"name": "Renamed",
		})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Renamed", body["name"])
	})

	t.Run("list", func(t *testing.T) {
		status, list := env.doJSONList(t, http.MethodGet, "/workflows", token)
		assert.Equal(t, http.StatusOK, status)
		require.Len(t, list, 1)
		assert.Equal(t, "Renamed", list[0]["name"])
	})

	t.Run("delete", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodDelete, "/workflows/"+workflowID, token, nil)
		assert.Equal(t, http.StatusNoContent, status)

		status, _ = env.doJSON(t, http.MethodGet, "/workflows/"+workflowID, token, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestNodeAndEdgeEndpoints(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "testuser")

	t.Run("catalog", func(t *testing.T) {
		status, list := env.doJSONList(t, http.MethodGet, "/nodes/catalog", token)
		assert.Equal(t, http.StatusOK, status)
		require.Len(t, list, 4)
		assert.Equal(t, "input", list[0]["type"])
	})

	status, created := env.doJSON(t, http.MethodPost, "/workflows", token, map[string]string{"name": "Graph"})
	require.Equal(t, http.StatusCreated, status)
	workflowID := created["id"].(string)

	addNode := func(t *testing.T, nodeType string, data map[string]interface{}) string {
		t.Helper()
		status, node := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/nodes", token, map[string]interface{}{
			"type": nodeType,
			"data": data,
		})
		require.Equal(t, http.StatusCreated, status)
		return node["id"].(string)
	}

	inputID := addNode(t, "input", map[string]interface{}{"label": "Input"})
	outputID := addNode(t, "output", map[string]interface{}{"label": "Output"})

	t.Run("invalid node type is 400", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/nodes", token, map[string]interface{}{
			"type": "cron",
			"data": map[string]interface{}{"label": "Cron"},
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("catalog violation is 400", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/nodes", token, map[string]interface{}{
			"type": "input",
			"data": map[string]interface{}{},
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("update node", func(t *testing.T) {
		status, node := env.doJSON(t, http.MethodPut, "/workflows/"+workflowID+"/nodes/"+inputID, token, map[string]interface{}{
			"data": map[string]interface{}{"label": "Renamed"},
		})
		assert.Equal(t, http.StatusOK, status)
		data := node["data"].(map[string]interface{})
		assert.Equal(t, "Renamed", data["label"])
	})

	status, edge := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/edges", token, map[string]string{
		"source_node_id": inputID,
		"target_node_id": outputID,
	})
	require.Equal(t, http.StatusCreated, status)
	edgeID := edge["id"].(string)

	t.Run("edge with unknown endpoint is 404", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/edges", token, map[string]string{
			"source_node_id": inputID,
			"target_node_id": "missing",
		})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("list nodes and edges", func(t *testing.T) {
		status, nodes := env.doJSONList(t, http.MethodGet, "/workflows/"+workflowID+"/nodes", token)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, nodes, 2)

		status, edges := env.doJSONList(t, http.MethodGet, "/workflows/"+workflowID+"/edges", token)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, edges, 1)
	})

	t.Run("delete edge then node", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodDelete, "/workflows/"+workflowID+"/edges/"+edgeID, token, nil)
		assert.Equal(t, http.StatusNoContent, status)

		status, _ = env.doJSON(t, http.MethodDelete, "/workflows/"+workflowID+"/nodes/"+outputID, token, nil)
		assert.Equal(t, http.StatusNoContent, status)
	})
}

// buildLinearWorkflow wires input -> llm -> output through the API and
// returns the workflow ID.
func buildLinearWorkflow(t *testing.T, env *apiTestEnv, token string) string {
	t.Helper()

	status, provider := env.doJSON(t, http.MethodPost, "/providers", token, map[string]interface{}{
		"name":     "Local Ollama",
		"base_url": "http://localhost:11434",
	})
	require.Equal(t, http.StatusCreated, status)
	providerID := provider["id"].(float64)

	status, created := env.doJSON(t, http.MethodPost, "/workflows", token, map[string]string{"name": "Linear"})
	require.Equal(t, http.StatusCreated, status)
	workflowID := created["id"].(string)

	var nodeIDs []string
	for _, node := range []map[string]interface{}{
		{"type": "input", "data": map[string]interface{}{"label": "Input"}},
		{"type": "llm", "data": map[string]interface{}{
			"label":           "LLM",
			"llm_provider_id": providerID,
			"model":           "llama3",
			"system_prompt":   "You are terse.",
		}},
		{"type": "output", "data": map[string]interface{}{"label": "Output"}},
	} {
		status, body := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/nodes", token, node)
		require.Equal(t, http.StatusCreated, status)
		nodeIDs = append(nodeIDs, body["id"].(string))
	}

	for i := 0; i+1 < len(nodeIDs); i++ {
		status, _ := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/edges", token, map[string]string{
			"source_node_id": nodeIDs[i],
			"target_node_id": nodeIDs[i+1],
		})
		require.Equal(t, http.StatusCreated, status)
	}

	return workflowID
}

func TestExecutionEndpoints(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "testuser")
	workflowID := buildLinearWorkflow(t, env, token)

	t.Run("successful run", func(t *testing.T) {
		status, record := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/executions", token, map[string]interface{}{
			"input_data": map[string]interface{}{"value": "hello"},
		})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "success", record["status"])

		output := record["output_data"].(map[string]interface{})
		assert.Equal(t, "llm says hi", output["value"])

		executionID := record["id"].(string)
		status, fetched := env.doJSON(t, http.MethodGet, "/executions/"+executionID, token, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "success", fetched["status"])
	})

	t.Run("node failure still creates a record", func(t *testing.T) {
		env.llm.err = &utils.StatusError{StatusCode: http.StatusInternalServerError, Body: "model crashed"}
		defer func() { env.llm.err = nil }()

		status, record := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/executions", token, map[string]interface{}{
			"input_data": map[string]interface{}{"value": "hello"},
		})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "failed", record["status"])
		assert.Contains(t, record["error"], "LLM provider returned 500")
	})

	t.Run("bad payload is 400", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodPost, "/workflows/"+workflowID+"/executions", token, map[string]interface{}{
			"input_data": map[string]interface{}{"value": 42},
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown workflow is 404", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodPost, "/workflows/missing/executions", token, map[string]interface{}{
			"input_data": map[string]interface{}{"value": "hello"},
		})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("list", func(t *testing.T) {
		status, list := env.doJSONList(t, http.MethodGet, "/workflows/"+workflowID+"/executions", token)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, list, 2)
	})
}

func TestProviderEndpoints(t *testing.T) {
	env := newAPITestEnv(t)
	token := env.registerAndLogin(t, "testuser")

	status, created := env.doJSON(t, http.MethodPost, "/providers", token, map[string]interface{}{
		"name":     "Local Ollama",
		"base_url": "http://localhost:11434",
	})
	require.Equal(t, http.StatusCreated, status)
	providerID := fmt.Sprintf("%d", int64(created["id"].(float64)))
	assert.Equal(t, "ollama", created["type"])

	t.Run("missing name is 400", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodPost, "/providers", token, map[string]interface{}{
			"base_url": "http://localhost:11434",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("missing base_url is 400", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodPost, "/providers", token, map[string]interface{}{
			"name": "No URL",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("get and list", func(t *testing.T) {
		status, body := env.doJSON(t, http.MethodGet, "/providers/"+providerID, token, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Local Ollama", body["name"])

		status, list := env.doJSONList(t, http.MethodGet, "/providers", token)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, list, 1)
	})

	t.Run("non-numeric id is 404", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodGet, "/providers/abc", token, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("update", func(t *testing.T) {
		status, body := env.doJSON(t, http.MethodPut, "/providers/"+providerID, token, map[string]interface{}{
			"name": "Renamed Ollama",
		})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Renamed Ollama", body["name"])
		assert.Equal(t, "http://localhost:11434", body["base_url"])
	})

	t.Run("list models", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodGet, "/providers/"+providerID+"/models", token, nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("list models connectivity failure is 502", func(t *testing.T) {
		env.llm.err = &utils.StatusError{StatusCode: http.StatusServiceUnavailable}
		defer func() { env.llm.err = nil }()

		status, body := env.doJSON(t, http.MethodGet, "/providers/"+providerID+"/models", token, nil)
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Contains(t, body["error"], "LLM provider returned 503")
	})

	t.Run("delete", func(t *testing.T) {
		status, _ := env.doJSON(t, http.MethodDelete, "/providers/"+providerID, token, nil)
		assert.Equal(t, http.StatusNoContent, status)

		status, _ = env.doJSON(t, http.MethodGet, "/providers/"+providerID, token, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}
