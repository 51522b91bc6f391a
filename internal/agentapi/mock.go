package agentapi

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// MockHost answers like an agent host without a model. It keeps the sessions
// it created so that runs against unknown sessions fail the same way a real
// host does.
type MockHost struct {
	mu       sync.Mutex
	sessions map[string]struct{}
}

func NewMockHost() *MockHost {
	return &MockHost{sessions: make(map[string]struct{})}
}

func (m *MockHost) CreateSession(ctx context.Context, appName, userID, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey(appName, userID, sessionID)
	if _, ok := m.sessions[key]; ok {
		return &StatusError{
			Op:         "create session",
			StatusCode: http.StatusBadRequest,
			Body:       fmt.Sprintf(`{"detail":"Session already exists: %s"}`, sessionID),
		}
	}
	m.sessions[key] = struct{}{}
	return nil
}

func (m *MockHost) Run(ctx context.Context, req RunRequest) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	_, ok := m.sessions[sessionKey(req.AppName, req.UserID, req.SessionID)]
	m.mu.Unlock()
	if !ok {
		return nil, &StatusError{Op: "run", StatusCode: http.StatusNotFound, Body: `{"detail":"Session not found"}`}
	}

	return []Event{{
		Author: req.AppName,
		Content: &Content{
			Role:  RoleModel,
			Parts: []Part{{Text: buildMockReply(req.NewMessage)}},
		},
	}}, nil
}

func (m *MockHost) Ping(ctx context.Context) error {
	return ctx.Err()
}

func buildMockReply(msg Content) string {
	var text string
	var images []string
	for _, p := range msg.Parts {
		if p.InlineData != nil {
			n := base64.StdEncoding.DecodedLen(len(p.InlineData.Data))
			if raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data); err == nil {
				n = len(raw)
			}
			images = append(images, fmt.Sprintf("%s (%s, %d bytes)", p.InlineData.DisplayName, p.InlineData.MimeType, n))
			continue
		}
		if text == "" {
			text = strings.TrimSpace(p.Text)
		}
	}
	if text == "" {
		text = "(no text)"
	}
	if len(images) == 0 {
		return fmt.Sprintf("You said: %s", text)
	}
	return fmt.Sprintf("You said: %s\nI received an image: %s", text, strings.Join(images, ", "))
}

func sessionKey(appName, userID, sessionID string) string {
	return appName + "\x00" + userID + "\x00" + sessionID
}
