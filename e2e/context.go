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
)

// TestContext holds state between test steps. Actors are the seeded demo
// accounts; their bearer tokens are captured per actor so steps can switch
// callers mid-scenario.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	// tokens maps actor name (alice, bob, ...) to a bearer token.
	tokens map[string]string
	// actor is the caller for steps phrased in the first person.
	actor string

	ConsentID string
	RecordID  string
	RequestID string
}

// NewTestContext creates a new test context.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &TestContext{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		tokens: map[string]string{},
	}
}

// account maps an actor name to the seeded account id.
func account(actor string) string {
	return "demo-" + strings.ToLower(strings.TrimSpace(actor))
}

// Do performs a request as the named actor (empty actor means anonymous) and
// stores the response.
func (tc *TestContext) Do(actor, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		token, ok := tc.tokens[actor]
		if !ok {
			return fmt.Errorf("actor %q is not logged in", actor)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	return nil
}

// GetResponseField extracts a field from the JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response: %s", field, tc.LastResponseBody)
	}

	return value, nil
}

// ResponseContains checks if the response body contains a field or text.
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}

	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}

	return false
}
