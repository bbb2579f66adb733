// Package utils provides the HTTP plumbing shared by the provider and
// search clients.
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// StatusError reports a non-success HTTP status from an external
// provider, carrying the response body for diagnostics
type StatusError struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Body is the response body text
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// BodyExcerpt returns the trimmed response body truncated to limit
// characters for inclusion in error messages
func (e *StatusError) BodyExcerpt(limit int) string {
	body := strings.TrimSpace(e.Body)
	if utf8.RuneCountInString(body) <= limit {
		return body
	}
	// Cut on a rune boundary so multi-byte text is never split
	end := 0
	for i := 0; i < limit; i++ {
		_, size := utf8.DecodeRuneInString(body[end:])
		end += size
	}
	return body[:end]
}

// IsTimeout reports whether err represents a request timeout
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// HTTPClient provides a reusable HTTP client with a bounded per-call
// timeout
type HTTPClient struct {
	client *http.Client
}

// HTTPRequest represents an HTTP request
type HTTPRequest struct {
	// URL of the request
	URL string

	// Method of the request; defaults to GET
	Method string

	// QueryParams to merge into the URL
	QueryParams map[string]string

	// Body is JSON-marshaled when non-nil
	Body interface{}
}

// HTTPResponse represents an HTTP response
type HTTPResponse struct {
	// StatusCode of the response
	StatusCode int

	// RawBody is the full response body
	RawBody []byte
}

// NewHTTPClient creates a new HTTP client with the given timeout
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Do executes an HTTP request. A transport failure or timeout is returned
// as an error; any completed response, success or not, is returned as an
// HTTPResponse for the caller to inspect.
func (c *HTTPClient) Do(ctx context.Context, req *HTTPRequest) (*HTTPResponse, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	// Marshal the JSON body if provided
	var bodyReader io.Reader
	if req.Body != nil {
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	// Merge query parameters into the URL
	parsedURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(req.QueryParams) > 0 {
		q := parsedURL.Query()
		for key, value := range req.QueryParams {
			q.Set(key, value)
		}
		parsedURL.RawQuery = q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, parsedURL.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		RawBody:    body,
	}, nil
}
