package memsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/MrSnowNB/project-alice/internal/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBackend is a scriptable Backend.
type fakeBackend struct {
	result      *memory.RetrieveResult
	retrieveErr error
	remembered  []string
	rememberErr error
}

func (f *fakeBackend) Retrieve(_ context.Context, query string) (*memory.RetrieveResult, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &memory.RetrieveResult{Found: false}, nil
}

func (f *fakeBackend) Remember(_ context.Context, text string, _ map[string]string) error {
	if f.rememberErr != nil {
		return f.rememberErr
	}
	f.remembered = append(f.remembered, text)
	return nil
}

func (f *fakeBackend) Count() int { return len(f.remembered) }

func newTestServer(t *testing.T, backend *fakeBackend) *Server {
	t.Helper()
	server, err := NewServer(backend, zap.NewNop(), "localhost:0")
	require.NoError(t, err)
	return server
}

func postJSON(server *Server, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(nil, zap.NewNop(), "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "backend")

	_, err = NewServer(&fakeBackend{}, nil, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "logger")
}

func TestHandleQuery(t *testing.T) {
	backend := &fakeBackend{result: &memory.RetrieveResult{
		Found:   true,
		Context: "a\n\n---\n\nb",
		Passages: []memory.Passage{
			{Content: "a", Metadata: map[string]string{"source": "notes.md"}, Score: 0.9},
			{Content: "b", Score: 0.5},
		},
	}}
	server := newTestServer(t, backend)

	rec := postJSON(server, "/query", QueryRequest{Query: "what do we know?"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.RelevantContext, 2)
	assert.Equal(t, "a", resp.RelevantContext[0].Content)
	assert.Equal(t, "notes.md", resp.RelevantContext[0].Metadata["source"])
	assert.NotNil(t, resp.RelevantContext[1].Metadata)
}

func TestHandleQueryEmptyStore(t *testing.T) {
	server := newTestServer(t, &fakeBackend{})

	rec := postJSON(server, "/query", QueryRequest{Query: "anything"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"relevant_context":[]`)
}

func TestHandleQueryMissingField(t *testing.T) {
	server := newTestServer(t, &fakeBackend{})

	rec := postJSON(server, "/query", map[string]string{"wrong": "field"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "query field is required")
}

func TestHandleQueryBackendFailure(t *testing.T) {
	server := newTestServer(t, &fakeBackend{retrieveErr: errors.New("store offline")})

	rec := postJSON(server, "/query", QueryRequest{Query: "anything"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "store offline")
}

func TestHandleAdd(t *testing.T) {
	backend := &fakeBackend{}
	server := newTestServer(t, backend)

	rec := postJSON(server, "/add", AddRequest{TextToRemember: "deploys happen on fridays"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp AddResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, memory.AddSuccessMessage, resp.Message)
	require.Len(t, backend.remembered, 1)
	assert.Equal(t, "deploys happen on fridays", backend.remembered[0])
}

func TestHandleAddMissingField(t *testing.T) {
	server := newTestServer(t, &fakeBackend{})

	rec := postJSON(server, "/add", AddRequest{TextToRemember: "   "})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "text_to_remember field is required")
}

func TestHandleHealth(t *testing.T) {
	backend := &fakeBackend{remembered: []string{"one", "two"}}
	server := newTestServer(t, backend)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Documents)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, &fakeBackend{})

	// Generate some traffic first.
	postJSON(server, "/query", QueryRequest{Query: "anything"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice_memory_requests_total")
	assert.True(t, strings.Contains(rec.Body.String(), `route="/query"`), "query traffic should be counted")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	server := newTestServer(t, &fakeBackend{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	// Give the listener a moment, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
