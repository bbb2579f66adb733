package loader

// WorkflowDefinition is the YAML representation of a workflow. Nodes are
// keyed by a local name; edges reference those names and are materialized
// in declaration order.
type WorkflowDefinition struct {
	Metadata MetadataDefinition        `yaml:"metadata"`
	Nodes    map[string]NodeDefinition `yaml:"nodes"`
	Edges    []EdgeDefinition          `yaml:"edges"`

	// NodeOrder preserves the declaration order of the nodes map, filled
	// in during parsing
	NodeOrder []string `yaml:"-"`
}

// MetadataDefinition describes the workflow itself
type MetadataDefinition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// NodeDefinition describes one node
type NodeDefinition struct {
	Type string                 `yaml:"type"`
	Data map[string]interface{} `yaml:"data"`
}

// EdgeDefinition describes one directed edge between two named nodes
type EdgeDefinition struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}
