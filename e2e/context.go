package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds state between steps of one scenario.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	// Username and Password are sent as Basic credentials when AccessToken is empty.
	Username    string
	Password    string
	AccessToken string

	RegistrationID string
	RegistrantSSN  string
}

// NewTestContext targets BASE_URL, or a local server by default.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		RegistrantSSN: fmt.Sprintf("%09d", rand.IntN(1_000_000_000)),
	}
}

// Do sends a request with the current credentials and stores the response.
// A nil body sends no payload.
func (tc *TestContext) Do(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
			reader = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case tc.AccessToken != "":
		req.Header.Set("Authorization", "Bearer "+tc.AccessToken)
	case tc.Username != "":
		req.SetBasicAuth(tc.Username, tc.Password)
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

// Field resolves a dotted path such as "latest_data.state_id" in the last JSON
// object response.
func (tc *TestContext) Field(path string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, key := range strings.Split(path, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s: %v is not an object", path, data)
		}
		if data, ok = obj[key]; !ok {
			return nil, fmt.Errorf("field %s not found in response", path)
		}
	}
	return data, nil
}

// List decodes the last response as a JSON array.
func (tc *TestContext) List() ([]map[string]any, error) {
	var items []map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &items); err != nil {
		return nil, fmt.Errorf("response is not a list: %w\nResponse: %s", err, tc.LastResponseBody)
	}
	return items, nil
}
