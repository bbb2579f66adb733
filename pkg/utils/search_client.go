package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors returned by the search client for unusable response bodies
var (
	// ErrMalformedJSON indicates the provider body was not valid JSON
	ErrMalformedJSON = errors.New("malformed JSON response")

	// ErrInvalidPayload indicates the provider body was valid JSON but
	// not a JSON object
	ErrInvalidPayload = errors.New("invalid payload format")
)

// DuckDuckGoClient queries the DuckDuckGo Instant Answer API
type DuckDuckGoClient struct {
	baseURL string
	http    *HTTPClient
}

// NewDuckDuckGoClient creates a search client for the given endpoint with
// a bounded per-call timeout
func NewDuckDuckGoClient(baseURL string, timeout time.Duration) *DuckDuckGoClient {
	return &DuckDuckGoClient{
		baseURL: baseURL,
		http:    NewHTTPClient(timeout),
	}
}

// Search executes one search request and returns the decoded JSON object
func (c *DuckDuckGoClient) Search(ctx context.Context, query string) (map[string]interface{}, error) {
	resp, err := c.http.Do(ctx, &HTTPRequest{
		URL: c.baseURL,
		QueryParams: map[string]string{
			"q":             query,
			"format":        "json",
			"no_html":       "1",
			"skip_disambig": "1",
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(resp.RawBody)}
	}

	var payload interface{}
	if err := json.Unmarshal(resp.RawBody, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	object, ok := payload.(map[string]interface{})
	if !ok {
		return nil, ErrInvalidPayload
	}

	return object, nil
}
