package agentapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestHTTPClientCreateSession(t *testing.T) {
	var gotPath, gotBody, gotContentType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.EscapedPath()
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"id":"session-1"}`))
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL+"/", 0)
	err := c.CreateSession(context.Background(), "image_agent", "user-1", "session-1700000000")
	require.NoError(t, err)
	assert.Equal(t, "/apps/image_agent/users/user-1/sessions/session-1700000000", gotPath)
	assert.Equal(t, "{}", gotBody)
	assert.Equal(t, "application/json", gotContentType)
}

func TestHTTPClientCreateSessionNon200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Session already exists"}`))
	}))
	defer ts.Close()

	err := NewHTTPClient(ts.URL, 0).CreateSession(context.Background(), "image_agent", "u", "s")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, `{"detail":"Session already exists"}`, se.Body)
	assert.Equal(t, `{"detail":"Session already exists"}`, Detail(err))
	assert.Equal(t, "client_error", Classify(err))
}

func TestHTTPClientCreateSessionRejectsOtherSuccessCodes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	err := NewHTTPClient(ts.URL, 0).CreateSession(context.Background(), "a", "u", "s")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusCreated, se.StatusCode)
}

func TestHTTPClientRun(t *testing.T) {
	var got RunRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/run", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[
			{"author":"image_agent","content":{"role":"model","parts":[{"text":"hello"}]},"usageMetadata":{"totalTokenCount":3}}
		]`))
	}))
	defer ts.Close()

	req := RunRequest{
		AppName:   "image_agent",
		UserID:    "user-1",
		SessionID: "session-1",
		NewMessage: Content{Role: RoleUser, Parts: []Part{
			{Text: "what is this?"},
			{InlineData: &InlineData{DisplayName: "uploaded.png", Data: "iVBORw0K", MimeType: "image/png"}},
		}},
	}
	events, err := NewHTTPClient(ts.URL, 0).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Content)
	assert.Equal(t, RoleModel, events[0].Content.Role)
	assert.Equal(t, "hello", events[0].Content.Parts[0].Text)
	assert.Equal(t, req, got)
}

func TestHTTPClientRunWireFormat(t *testing.T) {
	var raw map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	_, err := NewHTTPClient(ts.URL, 0).Run(context.Background(), RunRequest{
		AppName: "image_agent", UserID: "u", SessionID: "s",
		NewMessage: Content{Role: RoleUser, Parts: []Part{{Text: "hi"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, false, raw["streaming"])
	msg := raw["newMessage"].(map[string]any)
	parts := msg["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, map[string]any{"text": "hi"}, parts[0])
}

func TestHTTPClientRunNon200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	events, err := NewHTTPClient(ts.URL, 0).Run(context.Background(), RunRequest{})
	require.Error(t, err)
	assert.Nil(t, events)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Retryable())
	assert.Equal(t, "model overloaded", Detail(err))
	assert.Equal(t, "server_error", Classify(err))
}

func TestHTTPClientRunUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewHTTPClient(url, 0).Run(context.Background(), RunRequest{})
	require.Error(t, err)
	assert.Equal(t, "unreachable", Classify(err))
}

func TestHTTPClientRecordsSpans(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/run" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	c := NewHTTPClient(ts.URL, 0, WithTracerProvider(tp))

	require.NoError(t, c.CreateSession(context.Background(), "a", "u", "s"))
	_, err := c.Run(context.Background(), RunRequest{AppName: "a", UserID: "u", SessionID: "s"})
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "agentapi.CreateSession", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, "agentapi.Run", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "server_error", spans[1].Status().Description)
}

func TestHTTPClientPing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/list-apps" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`["image_agent"]`))
	}))
	defer ts.Close()

	require.NoError(t, NewHTTPClient(ts.URL, 0).Ping(context.Background()))
}
