package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"nightout/internal/identity/memory"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	// Platform is set when the scenario runs against an in-process server.
	Platform *memory.Platform
	closers  []func()
}

// NewTestContext targets BASE_URL when set, otherwise a fresh in-process server.
func NewTestContext() (*TestContext, error) {
	tc := &TestContext{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		tc.BaseURL = strings.TrimRight(baseURL, "/")
		return tc, nil
	}

	srv, err := startInProcess()
	if err != nil {
		return nil, err
	}
	tc.BaseURL = srv.URL
	tc.Platform = srv.platform
	tc.closers = append(tc.closers, srv.Close)
	return tc, nil
}

// Close releases the in-process server, if any.
func (tc *TestContext) Close() {
	for _, c := range tc.closers {
		c()
	}
	tc.closers = nil
}

// Do sends a JSON request and stores the response. A nil body sends no payload.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response. Nested fields
// are addressed with dots, e.g. "statistics.total_drinks".
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	for _, part := range strings.Split(field, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
		if data, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return data, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	return strings.Contains(string(tc.LastResponseBody), text)
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) InProcess() *memory.Platform {
	return tc.Platform
}
