package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/assetforge/api/internal/config"
	"github.com/assetforge/api/internal/model"
)

func newTestClient(serverURL, fallbackKey string) *TripoClient {
	return NewTripoClient(&config.TripoConfig{
		BaseURL: serverURL,
		APIKey:  fallbackKey,
	})
}

func TestSubmitTask_TextToModel(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/task" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(SubmitResult{TaskID: "task-abc", Status: "queued"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "fallback-key")

	result, err := c.SubmitTask(context.Background(), "", TextToModelSpec{Prompt: "a low-poly knight"})
	if err != nil {
		t.Fatalf("SubmitTask failed: %v", err)
	}

	if result.TaskID != "task-abc" {
		t.Errorf("expected task ID task-abc, got %q", result.TaskID)
	}
	if gotAuth != "Bearer fallback-key" {
		t.Errorf("expected fallback key in Authorization header, got %q", gotAuth)
	}
	if gotBody["type"] != "text_to_model" {
		t.Errorf("expected type text_to_model, got %v", gotBody["type"])
	}
	if gotBody["prompt"] != "a low-poly knight" {
		t.Errorf("expected prompt in payload, got %v", gotBody["prompt"])
	}
}

func TestSubmitTask_UserKeyOverridesFallback(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(SubmitResult{TaskID: "task-abc"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "fallback-key")

	_, err := c.SubmitTask(context.Background(), "user-key", TextToModelSpec{Prompt: "a barrel"})
	if err != nil {
		t.Fatalf("SubmitTask failed: %v", err)
	}

	if gotAuth != "Bearer user-key" {
		t.Errorf("expected user key to override fallback, got %q", gotAuth)
	}
}

func TestSubmitTask_RetargetPayload(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(SubmitResult{TaskID: "task-anim"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "key")

	spec := AnimateRetargetSpec{OriginalModelTaskID: "task-rig", Animation: "preset:walk"}
	if _, err := c.SubmitTask(context.Background(), "", spec); err != nil {
		t.Fatalf("SubmitTask failed: %v", err)
	}

	if gotBody["type"] != "animate_retarget" {
		t.Errorf("expected type animate_retarget, got %v", gotBody["type"])
	}
	if gotBody["original_model_task_id"] != "task-rig" {
		t.Errorf("expected original_model_task_id task-rig, got %v", gotBody["original_model_task_id"])
	}
	if gotBody["animation"] != "preset:walk" {
		t.Errorf("expected animation preset:walk, got %v", gotBody["animation"])
	}
}

func TestGetTask_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/task/task-abc" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(TaskState{
			TaskID:   "task-abc",
			Status:   model.TaskStatusRunning,
			Progress: 42,
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "key")

	state, err := c.GetTask(context.Background(), "", "task-abc")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if state.Status != model.TaskStatusRunning {
		t.Errorf("expected running status, got %q", state.Status)
	}
	if state.Progress != 42 {
		t.Errorf("expected progress 42, got %d", state.Progress)
	}
}

func TestGetTask_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code": 2002, "message": "invalid api key"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "bad-key")

	_, err := c.GetTask(context.Background(), "", "task-abc")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if upErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", upErr.StatusCode)
	}
	if upErr.Body == "" {
		t.Error("expected provider body to be preserved")
	}
}

func TestIsConfigured(t *testing.T) {
	if newTestClient("http://localhost", "").IsConfigured() {
		t.Error("expected unconfigured without fallback key")
	}
	if !newTestClient("http://localhost", "key").IsConfigured() {
		t.Error("expected configured with fallback key")
	}
}
