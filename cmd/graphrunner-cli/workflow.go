package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahartwell/graphrunner/pkg/loader"
	"github.com/ahartwell/graphrunner/pkg/models"
)

// listWorkflows lists all workflows
func listWorkflows(cmd *cobra.Command, args []string) {
	body, status, err := doRequest(http.MethodGet, "/api/v1/workflows", nil)
	if err != nil {
		fail("%v", err)
	}
	if status != http.StatusOK {
		fail("%s", body)
	}

	printJSON(body)
}

// getWorkflow gets a workflow
func getWorkflow(cmd *cobra.Command, args []string) {
	body, status, err := doRequest(http.MethodGet, "/api/v1/workflows/"+args[0], nil)
	if err != nil {
		fail("%v", err)
	}
	if status != http.StatusOK {
		fail("%s", body)
	}

	printJSON(body)
}

// deleteWorkflow deletes a workflow
func deleteWorkflow(cmd *cobra.Command, args []string) {
	body, status, err := doRequest(http.MethodDelete, "/api/v1/workflows/"+args[0], nil)
	if err != nil {
		fail("%v", err)
	}
	if status != http.StatusNoContent {
		fail("%s", body)
	}

	fmt.Println("Workflow deleted")
}

// importWorkflow imports a YAML workflow definition: the document is
// parsed locally, then the workflow with its nodes and edges is created
// through the API so server-side validation still applies
func importWorkflow(cmd *cobra.Command, args []string) {
	content, err := os.ReadFile(args[0])
	if err != nil {
		fail("%v", err)
	}

	// Parsing needs no registry; writes happen through the API below
	def, err := loader.NewYAMLLoader(nil).Parse(string(content))
	if err != nil {
		fail("%v", err)
	}

	// Create the workflow
	body, status, err := doRequest(http.MethodPost, "/api/v1/workflows", map[string]string{
		"name":        def.Metadata.Name,
		"description": def.Metadata.Description,
	})
	if err != nil {
		fail("%v", err)
	}
	if status != http.StatusCreated {
		fail("%s", body)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(body, &workflow); err != nil {
		fail("%v", err)
	}

	// Create nodes in declaration order, remembering name -> ID
	nodeIDs := make(map[string]string, len(def.Nodes))
	for _, name := range def.NodeOrder {
		nodeDef := def.Nodes[name]
		body, status, err := doRequest(http.MethodPost, "/api/v1/workflows/"+workflow.ID+"/nodes", map[string]interface{}{
			"type": nodeDef.Type,
			"data": nodeDef.Data,
		})
		if err != nil {
			fail("%v", err)
		}
		if status != http.StatusCreated {
			fail("failed to create node '%s': %s", name, body)
		}

		var node models.Node
		if err := json.Unmarshal(body, &node); err != nil {
			fail("%v", err)
		}
		nodeIDs[name] = node.ID
	}

	// Create edges in declaration order
	for _, edgeDef := range def.Edges {
		body, status, err := doRequest(http.MethodPost, "/api/v1/workflows/"+workflow.ID+"/edges", map[string]string{
			"source_node_id": nodeIDs[edgeDef.Source],
			"target_node_id": nodeIDs[edgeDef.Target],
		})
		if err != nil {
			fail("%v", err)
		}
		if status != http.StatusCreated {
			fail("failed to create edge '%s' -> '%s': %s", edgeDef.Source, edgeDef.Target, body)
		}
	}

	fmt.Printf("Workflow imported: %s\n", workflow.ID)
}

// runWorkflow runs a workflow synchronously and prints the terminal
// execution record
func runWorkflow(cmd *cobra.Command, args []string) {
	body, status, err := doRequest(http.MethodPost, "/api/v1/workflows/"+args[0]+"/executions", map[string]interface{}{
		"input_data": map[string]string{"value": args[1]},
	})
	if err != nil {
		fail("%v", err)
	}
	if status != http.StatusCreated {
		fail("%s", body)
	}

	printJSON(body)
}

// getExecution gets an execution record
func getExecution(cmd *cobra.Command, args []string) {
	body, status, err := doRequest(http.MethodGet, "/api/v1/executions/"+args[0], nil)
	if err != nil {
		fail("%v", err)
	}
	if status != http.StatusOK {
		fail("%s", body)
	}

	printJSON(body)
}

// listExecutions lists a workflow's executions
func listExecutions(cmd *cobra.Command, args []string) {
	body, status, err := doRequest(http.MethodGet, "/api/v1/workflows/"+args[0]+"/executions", nil)
	if err != nil {
		fail("%v", err)
	}
	if status != http.StatusOK {
		fail("%s", body)
	}

	printJSON(body)
}
