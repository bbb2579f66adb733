package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahartwell/graphrunner/pkg/utils"
)

// Bounds for the max_results node configuration field
const (
	minSearchResults = 1
	maxSearchResults = 10
)

// SearchClient is the capability the web search handler requires from a
// search provider
type SearchClient interface {
	// Search runs one query and returns the decoded JSON object
	Search(ctx context.Context, query string) (map[string]interface{}, error)
}

// WebSearchNodeHandler handles web search nodes
type WebSearchNodeHandler struct {
	search SearchClient
}

// NewWebSearchNodeHandler creates a new web search node handler
func NewWebSearchNodeHandler(search SearchClient) *WebSearchNodeHandler {
	return &WebSearchNodeHandler{
		search: search,
	}
}

// Execute runs one web search node and returns aggregated text results
func (h *WebSearchNodeHandler) Execute(ctx context.Context, nodeCtx NodeContext) (string, error) {
	query, err := buildSearchQuery(nodeCtx)
	if err != nil {
		return "", err
	}

	maxResults, err := readMaxResults(nodeCtx)
	if err != nil {
		return "", err
	}

	payload, err := h.search.Search(ctx, query)
	if err != nil {
		return "", mapSearchProviderError(err)
	}

	lines := formatSearchResults(payload, maxResults)
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), nil
	}

	return fmt.Sprintf("No search results found for: %s", query), nil
}

// buildSearchQuery builds the query text from the node's parents, falling
// back to the run input value
func buildSearchQuery(nodeCtx NodeContext) (string, error) {
	query := strings.TrimSpace(strings.Join(nodeCtx.ParentValues, "\n"))
	if query == "" {
		query = strings.TrimSpace(nodeCtx.InputValue)
	}
	if query == "" {
		return "", NewNodeConfigError("web search query is empty")
	}
	return query, nil
}

// readMaxResults reads and validates max_results from the node data
func readMaxResults(nodeCtx NodeContext) (int, error) {
	maxResults, ok := intValue(nodeCtx.NodeData["max_results"])
	if !ok || maxResults < minSearchResults || maxResults > maxSearchResults {
		return 0, NewNodeConfigError(fmt.Sprintf(
			"web search node requires max_results to be an integer in [%d, %d]",
			minSearchResults, maxSearchResults))
	}
	return int(maxResults), nil
}

// searchResult is one extracted (text, optional url) pair
type searchResult struct {
	text string
	url  string
}

// formatSearchResults builds numbered lines from a search payload: the
// abstract first when present, then the flattened related topics,
// truncated to maxResults
func formatSearchResults(payload map[string]interface{}, maxResults int) []string {
	var items []searchResult

	if abstract, ok := payload["AbstractText"].(string); ok && strings.TrimSpace(abstract) != "" {
		item := searchResult{text: strings.TrimSpace(abstract)}
		if abstractURL, ok := payload["AbstractURL"].(string); ok {
			item.url = strings.TrimSpace(abstractURL)
		}
		items = append(items, item)
	}

	items = append(items, extractRelatedTopics(payload["RelatedTopics"])...)

	if len(items) > maxResults {
		items = items[:maxResults]
	}

	lines := make([]string, 0, len(items))
	for index, item := range items {
		suffix := ""
		if item.url != "" {
			suffix = fmt.Sprintf(" (%s)", item.url)
		}
		lines = append(lines, fmt.Sprintf("%d. %s%s", index+1, item.text, suffix))
	}

	return lines
}

// extractRelatedTopics flattens RelatedTopics entries, including nested
// topic groups, into (text, url) pairs. Groups can contain further topic
// lists, so this walks an explicit stack rather than iterating naively;
// popping from the end emits entries in reverse declaration order, which
// matches the upstream API consumer behavior this engine replaces.
func extractRelatedTopics(value interface{}) []searchResult {
	list, ok := value.([]interface{})
	if !ok {
		return nil
	}

	stack := make([]map[string]interface{}, 0, len(list))
	for _, entry := range list {
		if entryMap, ok := entry.(map[string]interface{}); ok {
			stack = append(stack, entryMap)
		}
	}

	var items []searchResult
	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if topics, ok := entry["Topics"].([]interface{}); ok {
			for _, topic := range topics {
				if topicMap, ok := topic.(map[string]interface{}); ok {
					stack = append(stack, topicMap)
				}
			}
			continue
		}

		text, ok := entry["Text"].(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}

		item := searchResult{text: strings.TrimSpace(text)}
		if firstURL, ok := entry["FirstURL"].(string); ok {
			item.url = strings.TrimSpace(firstURL)
		}
		items = append(items, item)
	}

	return items
}

// mapSearchProviderError maps search transport failures onto the
// engine's provider connectivity taxonomy
func mapSearchProviderError(err error) error {
	if utils.IsTimeout(err) {
		return NewProviderConnectionError("web search request timed out while running execution")
	}

	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		message := fmt.Sprintf("web search provider returned %d", statusErr.StatusCode)
		if excerpt := statusErr.BodyExcerpt(bodyExcerptLimit); excerpt != "" {
			message = fmt.Sprintf("%s: %s", message, excerpt)
		}
		return NewProviderConnectionError(message)
	}

	if errors.Is(err, utils.ErrMalformedJSON) {
		return NewProviderConnectionError("web search provider returned malformed JSON")
	}
	if errors.Is(err, utils.ErrInvalidPayload) {
		return NewProviderConnectionError("web search provider returned invalid payload format")
	}

	return NewProviderConnectionError("web search request failed")
}
