// Package transcript keeps an audit trail of chat exchanges with the agent
// host. It is write-mostly: the visible conversation is never rebuilt from it.
package transcript

import (
	"context"
	"time"
)

// Entry stores a single user or assistant turn.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	ImageMIME   string    `json:"image_mime,omitempty"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists transcript entries.
type Store interface {
	SaveTurn(ctx context.Context, entry Entry) error
	// Recent returns up to limit entries for userID, oldest first.
	Recent(ctx context.Context, userID string, limit int) ([]Entry, error)
	// Mode names the backend: memory, postgres or sqlite.
	Mode() string
	Close() error
}

const defaultRecentLimit = 50
