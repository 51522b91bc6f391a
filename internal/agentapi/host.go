// Package agentapi talks to an ADK-compatible agent host over its REST api.
package agentapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Host is the agent runtime seen from the chat service.
type Host interface {
	// CreateSession registers sessionID for userID under appName.
	CreateSession(ctx context.Context, appName, userID, sessionID string) error
	// Run submits one non-streaming turn and returns the produced events.
	Run(ctx context.Context, req RunRequest) ([]Event, error)
	// Ping checks that the host answers at all.
	Ping(ctx context.Context) error
}

// Config controls Host construction.
type Config struct {
	Mode    string
	BaseURL string
	Timeout time.Duration
}

func NewHost(cfg Config, opts ...Option) (Host, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "http"
	}

	switch mode {
	case "http":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, errors.New("agent api base url is required for http mode")
		}
		return NewHTTPClient(cfg.BaseURL, cfg.Timeout, opts...), nil
	case "mock":
		return NewMockHost(), nil
	default:
		return nil, fmt.Errorf("unsupported agent api mode %q", cfg.Mode)
	}
}
