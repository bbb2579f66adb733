package runtime

import (
	"fmt"

	"github.com/ahartwell/graphrunner/pkg/models"
)

// GraphContext is the validated, oriented view of a workflow graph built
// fresh per run from the node/edge snapshot. It is never partially
// constructed: BuildGraph either returns a complete context or an error.
type GraphContext struct {
	// NodesByID maps node IDs to their records
	NodesByID map[string]models.Node

	// Outbound maps a node ID to the IDs it feeds, in edge declaration order
	Outbound map[string][]string

	// Inbound maps a node ID to the IDs feeding it, in edge declaration order
	Inbound map[string][]string

	// InputNodeID is the single input node
	InputNodeID string

	// OutputNodeID is the single output node
	OutputNodeID string

	// TopologicalOrder is a permutation of all node IDs in which every
	// node appears after all of its inbound neighbors
	TopologicalOrder []string
}

// BuildGraph validates a node/edge snapshot and derives the execution
// graph context. Rules are applied in order: non-empty node set, exactly
// one input and one output node, no dangling edge references, acyclicity
// (Kahn's algorithm), and full connectivity between input and output.
func BuildGraph(nodes []models.Node, edges []models.Edge) (*GraphContext, error) {
	if len(nodes) == 0 {
		return nil, NewGraphValidationError("workflow must contain at least one node")
	}

	var inputNodes []models.Node
	var outputNodes []models.Node
	for _, node := range nodes {
		switch node.Type {
		case models.NodeTypeInput:
			inputNodes = append(inputNodes, node)
		case models.NodeTypeOutput:
			outputNodes = append(outputNodes, node)
		}
	}
	if len(inputNodes) != 1 {
		return nil, NewGraphValidationError(fmt.Sprintf(
			"workflow must contain exactly one input node, found %d", len(inputNodes)))
	}
	if len(outputNodes) != 1 {
		return nil, NewGraphValidationError(fmt.Sprintf(
			"workflow must contain exactly one output node, found %d", len(outputNodes)))
	}

	// Derive adjacency and indegree from the edge set
	nodesByID := make(map[string]models.Node, len(nodes))
	outbound := make(map[string][]string, len(nodes))
	inbound := make(map[string][]string, len(nodes))
	indegree := make(map[string]int, len(nodes))
	for _, node := range nodes {
		nodesByID[node.ID] = node
		outbound[node.ID] = nil
		inbound[node.ID] = nil
		indegree[node.ID] = 0
	}

	for _, edge := range edges {
		if _, ok := nodesByID[edge.SourceNodeID]; !ok {
			return nil, NewGraphValidationError("workflow contains edge with missing node reference")
		}
		if _, ok := nodesByID[edge.TargetNodeID]; !ok {
			return nil, NewGraphValidationError("workflow contains edge with missing node reference")
		}

		outbound[edge.SourceNodeID] = append(outbound[edge.SourceNodeID], edge.TargetNodeID)
		inbound[edge.TargetNodeID] = append(inbound[edge.TargetNodeID], edge.SourceNodeID)
		indegree[edge.TargetNodeID]++
	}

	order, err := topologicalOrder(nodes, indegree, outbound)
	if err != nil {
		return nil, err
	}

	inputNodeID := inputNodes[0].ID
	outputNodeID := outputNodes[0].ID
	if err := validateConnectivity(inputNodeID, outputNodeID, outbound, inbound, nodesByID); err != nil {
		return nil, err
	}

	return &GraphContext{
		NodesByID:        nodesByID,
		Outbound:         outbound,
		Inbound:          inbound,
		InputNodeID:      inputNodeID,
		OutputNodeID:     outputNodeID,
		TopologicalOrder: order,
	}, nil
}

// topologicalOrder runs Kahn's algorithm over the graph. The FIFO queue is
// seeded in node declaration order; ties between simultaneously
// zero-indegree nodes resolve in that order, which only affects the
// ordering of independent nodes, never dependency order.
func topologicalOrder(nodes []models.Node, indegree map[string]int, outbound map[string][]string) ([]string, error) {
	queue := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if indegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	remaining := make(map[string]int, len(indegree))
	for id, degree := range indegree {
		remaining[id] = degree
	}

	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]
		order = append(order, nodeID)

		for _, targetID := range outbound[nodeID] {
			remaining[targetID]--
			if remaining[targetID] == 0 {
				queue = append(queue, targetID)
			}
		}
	}

	// A short order means some node never reached zero indegree
	if len(order) != len(nodes) {
		return nil, NewGraphValidationError("workflow graph must be acyclic")
	}

	return order, nil
}

// validateConnectivity requires every node to be reachable forward from
// the input node and backward from the output node
func validateConnectivity(inputNodeID, outputNodeID string, outbound, inbound map[string][]string, nodesByID map[string]models.Node) error {
	forward := collectReachable(inputNodeID, outbound)
	backward := collectReachable(outputNodeID, inbound)

	for nodeID := range nodesByID {
		if !forward[nodeID] || !backward[nodeID] {
			return NewGraphValidationError("all workflow nodes must belong to the input->output path")
		}
	}

	return nil
}

// collectReachable walks the adjacency map depth-first from the start
// node, visiting each node at most once
func collectReachable(startNodeID string, adjacency map[string][]string) map[string]bool {
	stack := []string{startNodeID}
	visited := make(map[string]bool)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[nodeID] {
			continue
		}
		visited[nodeID] = true
		stack = append(stack, adjacency[nodeID]...)
	}

	return visited
}
