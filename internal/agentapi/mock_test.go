package agentapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockHostRoundTrip(t *testing.T) {
	m := NewMockHost()
	ctx := context.Background()
	require.NoError(t, m.CreateSession(ctx, "image_agent", "u", "s"))

	events, err := m.Run(ctx, RunRequest{
		AppName: "image_agent", UserID: "u", SessionID: "s",
		NewMessage: Content{Role: RoleUser, Parts: []Part{
			{Text: "  describe  "},
			{InlineData: &InlineData{
				DisplayName: "uploaded.jpg",
				Data:        base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff, 0xe0}),
				MimeType:    "image/jpeg",
			}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, RoleModel, events[0].Content.Role)
	assert.Equal(t, "You said: describe\nI received an image: uploaded.jpg (image/jpeg, 4 bytes)", events[0].Content.Parts[0].Text)
}

func TestMockHostUnknownSession(t *testing.T) {
	_, err := NewMockHost().Run(context.Background(), RunRequest{AppName: "a", UserID: "u", SessionID: "nope"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestMockHostDuplicateSession(t *testing.T) {
	m := NewMockHost()
	require.NoError(t, m.CreateSession(context.Background(), "a", "u", "s"))
	err := m.CreateSession(context.Background(), "a", "u", "s")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
}

func TestNewHost(t *testing.T) {
	h, err := NewHost(Config{Mode: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockHost{}, h)

	h, err = NewHost(Config{BaseURL: "http://localhost:8000"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPClient{}, h)

	_, err = NewHost(Config{Mode: "http"})
	require.Error(t, err)

	_, err = NewHost(Config{Mode: "grpc", BaseURL: "http://x"})
	require.Error(t, err)
}

func TestClassifyContextErrors(t *testing.T) {
	assert.Equal(t, "ok", Classify(nil))
	assert.Equal(t, "canceled", Classify(context.Canceled))
	assert.Equal(t, "timeout", Classify(context.DeadlineExceeded))
	assert.Equal(t, "unreachable", Classify(errors.New("dial tcp: refused")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&StatusError{StatusCode: 503}))
	assert.True(t, IsRetryable(&StatusError{StatusCode: 429}))
	assert.False(t, IsRetryable(&StatusError{StatusCode: 404}))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(errors.New("dial tcp: refused")))
	assert.False(t, IsRetryable(context.Canceled))
}
