// Package loader imports workflow definitions from YAML documents and
// materializes them through the workflow registry.
package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ahartwell/graphrunner/pkg/models"
	"github.com/ahartwell/graphrunner/pkg/registry"
)

// YAMLLoader parses and imports YAML workflow definitions
type YAMLLoader struct {
	registry *registry.WorkflowRegistry
}

// NewYAMLLoader creates a new YAML loader
func NewYAMLLoader(workflowRegistry *registry.WorkflowRegistry) *YAMLLoader {
	return &YAMLLoader{
		registry: workflowRegistry,
	}
}

// Parse converts a YAML string into a workflow definition, preserving
// the declaration order of the nodes map
func (l *YAMLLoader) Parse(yamlContent string) (*WorkflowDefinition, error) {
	var def WorkflowDefinition
	if err := yaml.Unmarshal([]byte(yamlContent), &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	order, err := nodeDeclarationOrder(yamlContent)
	if err != nil {
		return nil, err
	}
	def.NodeOrder = order

	if err := validateDefinition(&def); err != nil {
		return nil, err
	}

	return &def, nil
}

// Validate checks a YAML workflow definition without importing it
func (l *YAMLLoader) Validate(yamlContent string) error {
	_, err := l.Parse(yamlContent)
	return err
}

// Import parses a YAML definition and materializes it as a workflow
// owned by the account. Node names from the document are resolved to
// the generated node IDs when edges are created.
func (l *YAMLLoader) Import(accountID, yamlContent string) (models.Workflow, error) {
	def, err := l.Parse(yamlContent)
	if err != nil {
		return models.Workflow{}, err
	}

	workflow, err := l.registry.CreateWorkflow(accountID, def.Metadata.Name, def.Metadata.Description)
	if err != nil {
		return models.Workflow{}, err
	}

	// Create nodes in declaration order, remembering name -> ID
	nodeIDs := make(map[string]string, len(def.Nodes))
	for _, name := range def.NodeOrder {
		nodeDef := def.Nodes[name]
		node, err := l.registry.AddNode(accountID, workflow.ID, models.NodeType(nodeDef.Type), nodeDef.Data)
		if err != nil {
			return models.Workflow{}, fmt.Errorf("failed to create node '%s': %w", name, err)
		}
		nodeIDs[name] = node.ID
	}

	// Create edges in declaration order
	for _, edgeDef := range def.Edges {
		_, err := l.registry.AddEdge(accountID, workflow.ID, nodeIDs[edgeDef.Source], nodeIDs[edgeDef.Target])
		if err != nil {
			return models.Workflow{}, fmt.Errorf("failed to create edge '%s' -> '%s': %w", edgeDef.Source, edgeDef.Target, err)
		}
	}

	return workflow, nil
}

// validateDefinition applies the structural rules a definition must meet
// before any store writes happen
func validateDefinition(def *WorkflowDefinition) error {
	if def.Metadata.Name == "" {
		return fmt.Errorf("workflow definition requires metadata.name")
	}
	if len(def.Nodes) == 0 {
		return fmt.Errorf("workflow definition requires at least one node")
	}

	for name, nodeDef := range def.Nodes {
		if nodeDef.Type == "" {
			return fmt.Errorf("node '%s' requires a type", name)
		}
		if !models.NodeType(nodeDef.Type).Valid() {
			return fmt.Errorf("node '%s' has unknown type '%s'", name, nodeDef.Type)
		}
	}

	for _, edgeDef := range def.Edges {
		if _, ok := def.Nodes[edgeDef.Source]; !ok {
			return fmt.Errorf("edge references non-existent node '%s'", edgeDef.Source)
		}
		if _, ok := def.Nodes[edgeDef.Target]; !ok {
			return fmt.Errorf("edge references non-existent node '%s'", edgeDef.Target)
		}
	}

	return nil
}

// nodeDeclarationOrder extracts the key order of the top-level nodes
// mapping. Go maps don't preserve YAML order, so the document is walked
// a second time through the yaml.Node API.
func nodeDeclarationOrder(yamlContent string) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(yamlContent), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil
	}

	// Mapping content alternates key, value
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "nodes" {
			continue
		}

		nodesNode := root.Content[i+1]
		if nodesNode.Kind != yaml.MappingNode {
			return nil, nil
		}

		order := make([]string, 0, len(nodesNode.Content)/2)
		for j := 0; j+1 < len(nodesNode.Content); j += 2 {
			order = append(order, nodesNode.Content[j].Value)
		}
		return order, nil
	}

	return nil, nil
}
