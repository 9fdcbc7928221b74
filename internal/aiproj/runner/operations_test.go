package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/longkey1/aiproj/internal/aiproj"
	"github.com/longkey1/aiproj/internal/aiproj/config"
	"github.com/longkey1/aiproj/internal/aiproj/threadlog"
	"github.com/longkey1/aiproj/internal/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func textMessage(id, role string, createdAt int64, text string) map[string]any {
	return map[string]any{
		"id":         id,
		"role":       role,
		"created_at": createdAt,
		"content":    []map[string]any{{"type": "text", "text": map[string]string{"value": text}}},
	}
}

// projectServer starts a fake project and returns a configuration pointing at it
func projectServer(t *testing.T, env config.MapSource, handler http.HandlerFunc) (*config.Set, Factory) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	env["PROJECT_ENDPOINT_TEST"] = srv.URL + "/api/projects/demo"
	if _, ok := env["CHAT_MODEL_TEST"]; !ok {
		env["CHAT_MODEL_TEST"] = "gpt-4"
	}
	return config.ResolveAll(env, []string{"TEST"}),
		NewClientFactory(staticCredential{}, foundry.WithPollInterval(time.Millisecond))
}

func TestHistoryFetch_EndToEnd(t *testing.T) {
	set, factory := projectServer(t, config.MapSource{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/demo/threads/thread_abc/messages", r.URL.Path)
		assert.Equal(t, "asc", r.URL.Query().Get("order"))
		writeJSON(t, w, map[string]any{
			"data": []map[string]any{
				textMessage("msg_1", "user", 100, "What is covered?"),
				textMessage("msg_2", "assistant", 200, "Dental and vision."),
			},
			"has_more": false,
		})
	})

	cfg, ok := set.Lookup("TEST")
	require.True(t, ok)
	assert.Equal(t, config.DefaultAPIVersion, cfg.APIVersion)

	var out bytes.Buffer
	report := New(factory, WithOutput(&out)).Run(context.Background(), set, "TEST", []Operation{
		&HistoryFetch{ThreadID: "thread_abc"},
	})

	require.Len(t, report.Results, 1)
	res := report.Results[0]
	require.Equal(t, StatusSucceeded, res.Status, "err: %v", res.Err)

	lines := strings.Split(strings.TrimSpace(res.Output), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[1970-01-01T00:01:40Z] user: What is covered?", lines[0])
	assert.Equal(t, "[1970-01-01T00:03:20Z] assistant: Dental and vision.", lines[1])
}

func TestHistoryFetch_JSON(t *testing.T) {
	set, factory := projectServer(t, config.MapSource{}, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"data": []map[string]any{textMessage("msg_1", "user", 100, "hi")},
		})
	})

	report := New(factory).Run(context.Background(), set, "TEST", []Operation{
		&HistoryFetch{ThreadID: "thread_abc", JSON: true},
	})

	var got []aiproj.ConversationMessage
	require.NoError(t, json.Unmarshal([]byte(report.Results[0].Output), &got))
	require.Len(t, got, 1)
	assert.Equal(t, aiproj.RoleUser, got[0].Role)
	assert.Equal(t, "hi", got[0].Content)
}

func TestHistoryFetch_Failure(t *testing.T) {
	set, factory := projectServer(t, config.MapSource{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NotFound","message":"no thread"}}`))
	})

	report := New(factory).Run(context.Background(), set, "TEST", []Operation{
		&HistoryFetch{ThreadID: "thread_missing"},
	})

	res := report.Results[0]
	require.Equal(t, StatusFailed, res.Status)
	var retrievalErr *aiproj.RetrievalError
	assert.True(t, errors.As(res.Err, &retrievalErr))
	var apiErr *foundry.APIError
	require.True(t, errors.As(res.Err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestDatasetUpload_SkipsWithoutConnection(t *testing.T) {
	set, factory := projectServer(t, config.MapSource{}, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	report := New(factory).Run(context.Background(), set, "TEST", []Operation{
		&DatasetUpload{DatasetName: "ds", DatasetVersion: "1", FilePath: "missing.pdf"},
	})

	res := report.Results[0]
	assert.Equal(t, StatusSkipped, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, "No connection name configured for TEST, skipping dataset upload", res.Output)
}

func TestDatasetUpload_Uploads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0644))

	var base string
	set, factory := projectServer(t, config.MapSource{"CONNECTION_NAME_TEST": "storage"}, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			writeJSON(t, w, map[string]any{
				"blobReference": map[string]any{
					"blobUri":    base + "/blob/c",
					"credential": map[string]string{"sasUri": base + "/blob/c?sig=1"},
				},
			})
		case http.MethodPut:
			w.WriteHeader(http.StatusCreated)
		case http.MethodPatch:
			writeJSON(t, w, map[string]any{"id": "ds:1", "name": "ds", "version": "1", "type": "uri_file", "dataUri": base + "/blob/c/plan.pdf"})
		}
	})
	cfg, _ := set.Lookup("TEST")
	base = strings.TrimSuffix(cfg.Endpoint, "/api/projects/demo")

	report := New(factory).Run(context.Background(), set, "TEST", []Operation{
		&DatasetUpload{DatasetName: "ds", DatasetVersion: "1", FilePath: path},
	})

	res := report.Results[0]
	require.Equal(t, StatusSucceeded, res.Status, "err: %v", res.Err)
	assert.Contains(t, res.Output, "Dataset uploaded successfully")
	assert.Contains(t, res.Output, "plan.pdf")
}

func TestChatTest(t *testing.T) {
	set, factory := projectServer(t, config.MapSource{"API_VERSION_TEST": "2025-01-01-preview"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4/chat/completions", r.URL.Path)
		assert.Equal(t, "2025-01-01-preview", r.URL.Query().Get("api-version"))

		var body foundry.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "user", body.Messages[1].Role)

		writeJSON(t, w, map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "Paris"}}},
		})
	})

	report := New(factory).Run(context.Background(), set, "TEST", []Operation{
		&ChatTest{Message: "Capital of France?", System: "Be brief."},
		&ChatTest{Message: "  "},
	})

	require.Len(t, report.Results, 2)
	assert.Equal(t, StatusSucceeded, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Output, "Using model: gpt-4")
	assert.Contains(t, report.Results[0].Output, "Response: Paris")
	assert.Equal(t, StatusFailed, report.Results[1].Status)
}

type memoryRecorder struct {
	records []*threadlog.Record
}

func (m *memoryRecorder) Save(rec *threadlog.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func TestAgentChat(t *testing.T) {
	set, factory := projectServer(t, config.MapSource{"AGENT_ID_TEST": "asst_1"}, func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(r.URL.Path, "/api/projects/demo")
		switch {
		case r.Method == http.MethodGet && p == "/assistants/asst_1":
			writeJSON(t, w, map[string]any{"id": "asst_1", "name": "helper"})
		case r.Method == http.MethodPost && p == "/threads":
			writeJSON(t, w, map[string]any{"id": "thread_new"})
		case r.Method == http.MethodPost && p == "/threads/thread_new/messages":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "user", body["role"])
			assert.Equal(t, "Hello agent", body["content"])
			writeJSON(t, w, textMessage("msg_1", "user", 1, "Hello agent"))
		case r.Method == http.MethodPost && p == "/threads/thread_new/runs":
			writeJSON(t, w, map[string]any{"id": "run_1", "status": "queued"})
		case r.Method == http.MethodGet && p == "/threads/thread_new/runs/run_1":
			writeJSON(t, w, map[string]any{"id": "run_1", "status": "completed"})
		case r.Method == http.MethodGet && p == "/threads/thread_new/messages":
			writeJSON(t, w, map[string]any{
				"data": []map[string]any{
					textMessage("msg_1", "user", 1, "Hello agent"),
					textMessage("msg_2", "assistant", 2, "Hello human"),
				},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	recorder := &memoryRecorder{}
	report := New(factory).Run(context.Background(), set, "TEST", []Operation{
		&AgentChat{Message: "Hello agent", Recorder: recorder},
	})

	res := report.Results[0]
	require.Equal(t, StatusSucceeded, res.Status, "err: %v", res.Err)
	assert.Contains(t, res.Output, "Created thread, ID: thread_new")
	assert.Contains(t, res.Output, "user: Hello agent")
	assert.Contains(t, res.Output, "assistant: Hello human")

	require.Len(t, recorder.records, 1)
	assert.Equal(t, "TEST", recorder.records[0].Config)
	assert.Equal(t, "thread_new", recorder.records[0].ThreadID)
	assert.Equal(t, "run_1", recorder.records[0].RunID)
	assert.Equal(t, "completed", recorder.records[0].RunStatus)
}

func TestAgentChat_RunFailed(t *testing.T) {
	set, factory := projectServer(t, config.MapSource{"AGENT_ID_TEST": "asst_1"}, func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(r.URL.Path, "/api/projects/demo")
		switch {
		case p == "/assistants/asst_1":
			writeJSON(t, w, map[string]any{"id": "asst_1"})
		case p == "/threads":
			writeJSON(t, w, map[string]any{"id": "thread_new"})
		case p == "/threads/thread_new/messages":
			writeJSON(t, w, textMessage("msg_1", "user", 1, "x"))
		case strings.HasPrefix(p, "/threads/thread_new/runs"):
			writeJSON(t, w, map[string]any{
				"id": "run_1", "status": "failed",
				"last_error": map[string]string{"code": "server_error", "message": "model unavailable"},
			})
		}
	})

	report := New(factory).Run(context.Background(), set, "TEST", []Operation{
		&AgentChat{Message: "x"},
	})

	res := report.Results[0]
	require.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Err.Error(), "model unavailable")
	assert.Contains(t, res.Output, "Created thread, ID: thread_new")
}

func TestAgentChat_SkipsWithoutAgent(t *testing.T) {
	set, factory := projectServer(t, config.MapSource{}, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	report := New(factory).Run(context.Background(), set, "TEST", []Operation{
		&AgentChat{Message: "x"},
	})
	assert.Equal(t, StatusSkipped, report.Results[0].Status)
}
