package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/assetforge/api/internal/config"
	"github.com/assetforge/api/internal/model"
)

// TaskClient defines the interface for 3D generation task operations
type TaskClient interface {
	SubmitTask(ctx context.Context, apiKey string, spec TaskSpec) (*SubmitResult, error)
	GetTask(ctx context.Context, apiKey, taskID string) (*TaskState, error)
	IsConfigured() bool
}

// TaskSpec is the closed union of job descriptions the provider accepts.
// Each variant carries exactly the fields its task type requires.
type TaskSpec interface {
	TaskType() string
	payload() map[string]interface{}
}

// TextToModelSpec requests a draft model from a text prompt
type TextToModelSpec struct {
	Prompt string
}

func (s TextToModelSpec) TaskType() string { return "text_to_model" }

func (s TextToModelSpec) payload() map[string]interface{} {
	return map[string]interface{}{
		"type":   s.TaskType(),
		"prompt": s.Prompt,
	}
}

// AnimateRigSpec requests auto-rigging of a prior task's output. The
// provider defines rigging as "retarget this prior task", so it takes a task
// id rather than a model URL.
type AnimateRigSpec struct {
	OriginalModelTaskID string
}

func (s AnimateRigSpec) TaskType() string { return "animate_rig" }

func (s AnimateRigSpec) payload() map[string]interface{} {
	return map[string]interface{}{
		"type":                   s.TaskType(),
		"original_model_task_id": s.OriginalModelTaskID,
	}
}

// AnimateRetargetSpec requests one canned animation applied to a rigged task
type AnimateRetargetSpec struct {
	OriginalModelTaskID string
	Animation           string // "preset:<name>"
}

func (s AnimateRetargetSpec) TaskType() string { return "animate_retarget" }

func (s AnimateRetargetSpec) payload() map[string]interface{} {
	return map[string]interface{}{
		"type":                   s.TaskType(),
		"original_model_task_id": s.OriginalModelTaskID,
		"animation":              s.Animation,
	}
}

// SubmitResult is the provider's acknowledgement of a submitted task
type SubmitResult struct {
	TaskID string `json:"task_id"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

// TaskState is the provider's view of one task. Output shape varies by task
// type and model family; see ExtractModelURL.
type TaskState struct {
	TaskID   string           `json:"task_id"`
	Status   model.TaskStatus `json:"status"`
	Progress int              `json:"progress,omitempty"`
	Output   json.RawMessage  `json:"output,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// UpstreamError carries the provider's HTTP status and body for diagnostics
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("tripo API error (status %d): %s", e.StatusCode, e.Body)
}

// TripoClient implements TaskClient for the Tripo3D API
type TripoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string // process-wide fallback key
}

// NewTripoClient creates a new Tripo API client
func NewTripoClient(cfg *config.TripoConfig) *TripoClient {
	return &TripoClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// SubmitTask submits a generation job and returns the provider-assigned task
// id. Generation jobs cost money, so there is no retry here; resubmission is
// an explicit caller decision.
func (c *TripoClient) SubmitTask(ctx context.Context, apiKey string, spec TaskSpec) (*SubmitResult, error) {
	var result SubmitResult
	if err := c.post(ctx, apiKey, "/task", spec.payload(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTask retrieves the current status of a task
func (c *TripoClient) GetTask(ctx context.Context, apiKey, taskID string) (*TaskState, error) {
	endpoint := fmt.Sprintf("/task/%s", taskID)
	var result TaskState
	if err := c.get(ctx, apiKey, endpoint, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListModels fetches the provider's generation model catalog
func (c *TripoClient) ListModels(ctx context.Context, apiKey string) ([]CatalogModel, error) {
	var result struct {
		Models []CatalogModel `json:"models"`
	}
	if err := c.get(ctx, apiKey, "/models", &result); err != nil {
		return nil, err
	}
	return result.Models, nil
}

// IsConfigured returns true if a process-wide fallback key is present
func (c *TripoClient) IsConfigured() bool {
	return c.apiKey != ""
}

// post sends a POST request with JSON body
func (c *TripoClient) post(ctx context.Context, apiKey, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, apiKey, result)
}

// get sends a GET request and parses JSON response
func (c *TripoClient) get(ctx context.Context, apiKey, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, apiKey, result)
}

// doRequest executes an HTTP request and parses the response. A per-user key
// overrides the process-wide fallback.
func (c *TripoClient) doRequest(req *http.Request, apiKey string, result interface{}) error {
	if apiKey == "" {
		apiKey = c.apiKey
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	log.Printf("[Tripo API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Tripo API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Tripo API] ✗ %s %s — failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Tripo API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Printf("[Tripo API] ✗ unmarshal error for %s %s: %v (body: %s)", req.Method, req.URL.String(), err, string(respBody))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
