package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/paperchat/internal/chat"
	"github.com/dgallion1/paperchat/internal/completion"
	"github.com/dgallion1/paperchat/internal/config"
	"github.com/dgallion1/paperchat/internal/pipeline"
	"github.com/dgallion1/paperchat/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "secret"

type echoCompleter struct {
	fail bool
	last completion.Request
}

func (e *echoCompleter) Complete(ctx context.Context, req completion.Request) completion.Result {
	e.last = req
	if e.fail {
		return completion.Result{Model: req.Model, Failure: &completion.Failure{Kind: completion.KindRateLimit, StatusCode: 429, Message: "slow down"}}
	}
	return completion.Result{Answer: "ok: " + req.Question, Model: req.Model}
}

type testEnv struct {
	srv       *Server
	completer *echoCompleter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := session.NewMemoryStore(10, time.Hour)
	orch := pipeline.NewOrchestrator(pipeline.Options{WorkerCount: 1, MaxQueueSize: 4}, store, log)
	orch.Start(context.Background())
	t.Cleanup(func() {
		orch.Stop()
		store.Close()
	})

	catalog := completion.NewCatalog([]string{"model-a", "model-b"})
	ec := &echoCompleter{}
	svc := chat.NewService(store, ec, catalog, log)
	cfg := config.Config{APIKey: testKey, MaxUploadBytes: 1024}
	return &testEnv{
		srv:       NewServer(store, orch, svc, catalog, completion.NewLLMStats(time.Hour), log, cfg),
		completer: ec,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path string, in any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	return e.do(t, method, path, body, "application/json")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec := e.doJSON(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decode(t, rec)["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func (e *testEnv) upload(t *testing.T, sessionID, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return e.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/document", &buf, mw.FormDataContentType())
}

func (e *testEnv) waitForJob(t *testing.T, jobID string) map[string]any {
	t.Helper()
	var snap map[string]any
	require.Eventually(t, func() bool {
		rec := e.doJSON(t, http.MethodGet, "/api/jobs/"+jobID, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		snap = decode(t, rec)
		switch snap["status"] {
		case string(pipeline.StatusCompleted), string(pipeline.StatusFailed), string(pipeline.StatusSuperseded):
			return true
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	return snap
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid api key", decode(t, rec)["error"])
}

func TestModelsAndSectionUsage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "model-a", body["default"])
	assert.Len(t, body["models"], 2)

	rec = env.doJSON(t, http.MethodGet, "/api/sections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, ": ", body["delimiter"])
	assert.Len(t, body["sections"], 6)
	assert.Contains(t, body["usage"], "abstract:")
}

func TestUploadAndAsk(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.upload(t, id, "paper.txt", "Title\nAbstract\nWe study X.\nResults\nX is 4.")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID, _ := decode(t, rec)["job_id"].(string)
	require.NotEmpty(t, jobID)

	snap := env.waitForJob(t, jobID)
	require.Equal(t, string(pipeline.StatusCompleted), snap["status"], snap)

	rec = env.doJSON(t, http.MethodGet, "/api/sessions/"+id+"/sections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	secs := decode(t, rec)["sections"].(map[string]any)
	assert.Equal(t, "Abstract\nWe study X.\n", secs["abstract"])
	assert.Equal(t, "", secs["conclusion"])

	rec = env.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/ask", askRequest{Query: "results: What is X?", Model: "model-b"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "ok: What is X?", body["answer"])
	assert.Equal(t, "results", body["target"])
	assert.Equal(t, "model-b", body["model"])
	assert.Equal(t, false, body["failed"])
	assert.Equal(t, "Results\nX is 4.\n", env.completer.last.Context)

	rec = env.doJSON(t, http.MethodGet, "/api/sessions/"+id+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["messages"], 2)

	rec = env.doJSON(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.EqualValues(t, 2, body["message_count"])
	assert.NotNil(t, body["document"])
}

func TestAsk_CompletionFailureIsAnAnswer(t *testing.T) {
	env := newTestEnv(t)
	env.completer.fail = true
	id := env.createSession(t)

	rec := env.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/ask", askRequest{Query: "What?"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["failed"])
	assert.Equal(t, "Error generating response: slow down", body["answer"])
	failure := body["failure"].(map[string]any)
	assert.Equal(t, "rate_limit", failure["kind"])
}

func TestAsk_BadRequests(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/ask", askRequest{Query: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/sessions/"+id+"/ask", askRequest{Query: "q", Model: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/ask", bytes.NewReader([]byte("{")), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(t, http.MethodPost, "/api/sessions/missing/ask", askRequest{Query: "q"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_Rejections(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.upload(t, id, "image.png", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.upload(t, id, "big.txt", string(bytes.Repeat([]byte("a"), 2048)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = env.upload(t, "missing", "paper.txt", "x")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.doJSON(t, http.MethodGet, "/api/jobs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	rec := env.doJSON(t, http.MethodGet, "/api/sessions/"+id+"/sections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Nil(t, body["document"])
	assert.Len(t, body["sections"], 6)
	assert.Empty(t, body["found"])

	rec = env.doJSON(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.doJSON(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.doJSON(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLLMStats(t *testing.T) {
	env := newTestEnv(t)
	rec := env.doJSON(t, http.MethodGet, "/api/stats/llm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec), "stats")
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"paper.pdf":          "paper.pdf",
		"../../etc/passwd":   "passwd",
		`C:\docs\report.txt`: "report.txt",
		"":                   "unnamed",
		"a..b.txt":           "a_b.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), "input %q", in)
	}
}
