package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bodhisearch/llamacheck/cmd/utils"
)

// CheckResult records the outcome of one HTTP check against a running server.
type CheckResult struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"duration"`
	Detail   string        `json:"detail,omitempty"`
}

// Check probes one endpoint of a healthy server.
type Check struct {
	Name string
	Run  func(client utils.HTTPClient, baseURL string) error
}

// DefaultPrompt keeps the completion checks fast on tiny models.
const DefaultPrompt = "Once upon a time"

// DefaultChecks exercises the endpoints a llama-server build must serve:
// the health probe, the native completion API and the OpenAI-compatible
// chat API.
func DefaultChecks(prompt string) []Check {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return []Check{
		{Name: "health", Run: checkHealth},
		{Name: "completion", Run: completionCheck(prompt)},
		{Name: "chat-completion", Run: chatCompletionCheck(prompt)},
	}
}

// RunChecks executes each check in order against baseURL and returns one
// result per check. A failing check does not stop the rest of the suite.
func RunChecks(client utils.HTTPClient, baseURL string, checks []Check) []CheckResult {
	results := make([]CheckResult, 0, len(checks))
	for _, c := range checks {
		start := time.Now()
		err := c.Run(client, baseURL)
		result := CheckResult{
			Name:     c.Name,
			Passed:   err == nil,
			Duration: time.Since(start),
		}
		if err != nil {
			result.Detail = err.Error()
			utils.LogDebug(fmt.Sprintf("Check %s failed: %v", c.Name, err))
		}
		results = append(results, result)
	}
	return results
}

func checkHealth(client utils.HTTPClient, baseURL string) error {
	body, err := getJSON(client, baseURL+"/health")
	if err != nil {
		return err
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("health response is not JSON: %w", err)
	}
	if payload.Status != "ok" {
		return fmt.Errorf("health status is %q, expected ok", payload.Status)
	}
	return nil
}

func completionCheck(prompt string) func(utils.HTTPClient, string) error {
	return func(client utils.HTTPClient, baseURL string) error {
		reqBody := map[string]any{
			"prompt":      prompt,
			"n_predict":   16,
			"temperature": 0.0,
		}
		body, err := postJSON(client, baseURL+"/completion", reqBody)
		if err != nil {
			return err
		}
		var payload struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("completion response is not JSON: %w", err)
		}
		if strings.TrimSpace(payload.Content) == "" {
			return fmt.Errorf("completion returned empty content")
		}
		return nil
	}
}

func chatCompletionCheck(prompt string) func(utils.HTTPClient, string) error {
	return func(client utils.HTTPClient, baseURL string) error {
		reqBody := map[string]any{
			"model": "default",
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
			"max_tokens":  16,
			"temperature": 0.0,
		}
		body, err := postJSON(client, baseURL+"/v1/chat/completions", reqBody)
		if err != nil {
			return err
		}
		var payload struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("chat response is not JSON: %w", err)
		}
		if len(payload.Choices) == 0 {
			return fmt.Errorf("chat response has no choices")
		}
		if strings.TrimSpace(payload.Choices[0].Message.Content) == "" {
			return fmt.Errorf("chat response has empty message content")
		}
		return nil
	}
}

func getJSON(client utils.HTTPClient, url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return doJSON(client, req)
}

func postJSON(client utils.HTTPClient, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(client, req)
}

func doJSON(client utils.HTTPClient, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d: %s", req.URL.Path, resp.StatusCode, truncateBody(body))
	}
	return body, nil
}

func truncateBody(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
