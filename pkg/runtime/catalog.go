package runtime

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ahartwell/graphrunner/pkg/models"
)

// FieldWidget identifies the UI widget a field renders as
type FieldWidget string

// Supported field widgets
const (
	WidgetText     FieldWidget = "text"
	WidgetTextarea FieldWidget = "textarea"
	WidgetSelect   FieldWidget = "select"
	WidgetNumber   FieldWidget = "number"
	WidgetProvider FieldWidget = "provider"
	WidgetModel    FieldWidget = "model"
)

// FieldDataSourceKind identifies where a field's choices come from
type FieldDataSourceKind string

// Supported data source kinds
const (
	DataSourceLLMProvider FieldDataSourceKind = "llm_provider"
	DataSourceLLMModel    FieldDataSourceKind = "llm_model"
)

// FieldDataSource declares an external data source for a field's choices
type FieldDataSource struct {
	// Kind of the data source
	Kind FieldDataSourceKind `json:"kind"`

	// DependsOn names another field whose value scopes the lookup
	DependsOn string `json:"depends_on,omitempty"`
}

// FieldUI holds presentation metadata for a field
type FieldUI struct {
	// Widget to render the field with
	Widget FieldWidget `json:"widget"`

	// Label shown next to the field
	Label string `json:"label"`

	// Placeholder text for empty fields
	Placeholder string `json:"placeholder,omitempty"`

	// Help text shown under the field
	Help string `json:"help,omitempty"`
}

// FieldValidators holds the validation constraints for a field
type FieldValidators struct {
	// MinLength requires a string value of at least this length
	MinLength *int `json:"min_length,omitempty"`

	// Select restricts the value to one of the listed options
	Select []string `json:"select,omitempty"`

	// GE requires a numeric value greater than or equal to this
	GE *float64 `json:"ge,omitempty"`

	// LE requires a numeric value less than or equal to this
	LE *float64 `json:"le,omitempty"`
}

// FieldSpec describes one key of a node's data map
type FieldSpec struct {
	// Name of the field
	Name string `json:"name"`

	// Required indicates the field must be present
	Required bool `json:"required"`

	// Validators applied to the field value
	Validators FieldValidators `json:"validators"`

	// UI presentation metadata
	UI FieldUI `json:"ui"`

	// Default value for the field
	Default interface{} `json:"default,omitempty"`

	// DataSource for the field's choices, if any
	DataSource *FieldDataSource `json:"datasource,omitempty"`
}

// GraphSpec declares how a node type participates in the graph
type GraphSpec struct {
	// HasInput indicates the node accepts inbound edges
	HasInput bool `json:"has_input"`

	// HasOutput indicates the node produces a value for outbound edges
	HasOutput bool `json:"has_output"`
}

// CatalogItem is the catalog entry for one node type
type CatalogItem struct {
	// Type of the node
	Type models.NodeType `json:"type"`

	// Label shown in the UI
	Label string `json:"label"`

	// IconKey identifies the UI icon
	IconKey string `json:"icon_key"`

	// Graph participation of the node type
	Graph GraphSpec `json:"graph"`

	// Fields of the node's data map
	Fields []FieldSpec `json:"fields"`
}

// nodeCatalog is the process-wide immutable node catalog. It is the single
// definition consumed by both node data validation and the catalog
// metadata endpoint.
var nodeCatalog = buildNodeCatalog()

func buildNodeCatalog() map[models.NodeType]CatalogItem {
	inputFields := []FieldSpec{
		{
			Name:       "label",
			Required:   true,
			Validators: FieldValidators{MinLength: intPtr(1)},
			UI:         FieldUI{Widget: WidgetText, Label: "Label", Placeholder: "Input label"},
			Default:    "Input node",
		},
		{
			Name:       "format",
			Required:   true,
			Validators: FieldValidators{Select: []string{"txt"}},
			UI:         FieldUI{Widget: WidgetSelect, Label: "Format"},
			Default:    "txt",
		},
	}

	llmFields := []FieldSpec{
		{
			Name:       "label",
			Required:   true,
			Validators: FieldValidators{MinLength: intPtr(1)},
			UI:         FieldUI{Widget: WidgetText, Label: "Label", Placeholder: "LLM label"},
			Default:    "LLM node",
		},
		{
			Name:       "llm_provider_id",
			Required:   true,
			Validators: FieldValidators{GE: floatPtr(1)},
			UI:         FieldUI{Widget: WidgetProvider, Label: "Provider"},
			DataSource: &FieldDataSource{Kind: DataSourceLLMProvider},
		},
		{
			Name:       "model",
			Required:   true,
			Validators: FieldValidators{MinLength: intPtr(1)},
			UI:         FieldUI{Widget: WidgetModel, Label: "Model"},
			DataSource: &FieldDataSource{Kind: DataSourceLLMModel, DependsOn: "llm_provider_id"},
			Default:    "",
		},
		{
			Name:     "system_prompt",
			Required: true,
			UI:       FieldUI{Widget: WidgetTextarea, Label: "System prompt", Placeholder: "You are a helpful assistant."},
			Default:  "",
		},
	}

	webSearchFields := []FieldSpec{
		{
			Name:       "label",
			Required:   true,
			Validators: FieldValidators{MinLength: intPtr(1)},
			UI:         FieldUI{Widget: WidgetText, Label: "Label", Placeholder: "Web search label"},
			Default:    "Web Search node",
		},
		{
			Name:       "max_results",
			Required:   true,
			Validators: FieldValidators{GE: floatPtr(1), LE: floatPtr(10)},
			UI:         FieldUI{Widget: WidgetNumber, Label: "Max results", Help: "How many search results to include in output."},
			Default:    5,
		},
	}

	outputFields := []FieldSpec{
		{
			Name:       "label",
			Required:   true,
			Validators: FieldValidators{MinLength: intPtr(1)},
			UI:         FieldUI{Widget: WidgetText, Label: "Label", Placeholder: "Output label"},
			Default:    "Output node",
		},
		{
			Name:       "format",
			Required:   true,
			Validators: FieldValidators{Select: []string{"txt"}},
			UI:         FieldUI{Widget: WidgetSelect, Label: "Format"},
			Default:    "txt",
		},
	}

	return map[models.NodeType]CatalogItem{
		models.NodeTypeInput: {
			Type:    models.NodeTypeInput,
			Label:   "Input",
			IconKey: "input",
			Graph:   GraphSpec{HasInput: false, HasOutput: true},
			Fields:  inputFields,
		},
		models.NodeTypeLLM: {
			Type:    models.NodeTypeLLM,
			Label:   "LLM",
			IconKey: "llm",
			Graph:   GraphSpec{HasInput: true, HasOutput: true},
			Fields:  llmFields,
		},
		models.NodeTypeWebSearch: {
			Type:    models.NodeTypeWebSearch,
			Label:   "Web Search",
			IconKey: "web_search",
			Graph:   GraphSpec{HasInput: true, HasOutput: true},
			Fields:  webSearchFields,
		},
		models.NodeTypeOutput: {
			Type:    models.NodeTypeOutput,
			Label:   "Output",
			IconKey: "output",
			Graph:   GraphSpec{HasInput: true, HasOutput: false},
			Fields:  outputFields,
		},
	}
}

// Catalog returns catalog entries for all node types in catalog order
func Catalog() []CatalogItem {
	items := make([]CatalogItem, 0, len(nodeCatalog))
	for _, nodeType := range models.NodeTypes() {
		items = append(items, nodeCatalog[nodeType])
	}
	return items
}

// CatalogItemFor returns the catalog entry for a node type
func CatalogItemFor(nodeType models.NodeType) (CatalogItem, bool) {
	item, ok := nodeCatalog[nodeType]
	return item, ok
}

// ValidateNodeData validates a node data payload against the catalog
// schema for its type. It returns the payload unchanged on success and a
// NodeConfigError collecting every violation on failure.
func ValidateNodeData(nodeType models.NodeType, data map[string]interface{}) (map[string]interface{}, error) {
	spec, ok := nodeCatalog[nodeType]
	if !ok {
		return nil, NewNodeConfigError(fmt.Sprintf("unsupported node type: %s", nodeType))
	}

	var errors []string

	fieldsByName := make(map[string]FieldSpec, len(spec.Fields))
	for _, field := range spec.Fields {
		fieldsByName[field.Name] = field
	}

	// Reject keys the catalog does not know about
	var unexpected []string
	for name := range data {
		if _, ok := fieldsByName[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		errors = append(errors, fmt.Sprintf("unexpected fields: %s", strings.Join(unexpected, ", ")))
	}

	for _, field := range spec.Fields {
		value, present := data[field.Name]
		if !present {
			if field.Required {
				errors = append(errors, fmt.Sprintf("missing required field: '%s'", field.Name))
			}
			continue
		}

		validateNodeField(field, value, &errors)
	}

	if len(errors) > 0 {
		return nil, NewNodeConfigError(strings.Join(errors, "; "))
	}

	return data, nil
}

// validateNodeField applies one field's validators and appends any
// violations to errors
func validateNodeField(field FieldSpec, value interface{}, errors *[]string) {
	validators := field.Validators

	if validators.MinLength != nil {
		text, ok := value.(string)
		if !ok || len(text) < *validators.MinLength {
			*errors = append(*errors, fmt.Sprintf(
				"field '%s' must be a string with min length %d", field.Name, *validators.MinLength))
		}
	}

	if len(validators.Select) > 0 {
		text, ok := value.(string)
		allowed := false
		if ok {
			for _, option := range validators.Select {
				if text == option {
					allowed = true
					break
				}
			}
		}
		if !allowed {
			*errors = append(*errors, fmt.Sprintf(
				"field '%s' must be one of: %s", field.Name, strings.Join(validators.Select, ", ")))
		}
	}

	if validators.GE != nil {
		number, ok := numberValue(value)
		if !ok || number < *validators.GE {
			*errors = append(*errors, fmt.Sprintf("field '%s' must be >= %g", field.Name, *validators.GE))
		}
	}

	if validators.LE != nil {
		number, ok := numberValue(value)
		if !ok || number > *validators.LE {
			*errors = append(*errors, fmt.Sprintf("field '%s' must be <= %g", field.Name, *validators.LE))
		}
	}
}

// numberValue extracts a numeric value from a node data entry. JSON
// decoding produces float64, so all numeric Go types are accepted.
func numberValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// intValue extracts an integer from a node data entry, accepting float64
// values with an integral part only (the JSON decoding of an integer)
func intValue(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	case float32:
		if float64(v) == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
