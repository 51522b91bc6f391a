package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ent0n29/imagechat/internal/agentapi"
)

type onboardingCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type onboardingStatusResponse struct {
	AgentAPIMode   string            `json:"agent_api_mode"`
	AgentAPIURL    string            `json:"agent_api_url,omitempty"`
	AppName        string            `json:"app_name"`
	TranscriptMode string            `json:"transcript_mode"`
	Checks         []onboardingCheck `json:"checks"`
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	checks := make([]onboardingCheck, 0, 4)
	checks = append(checks, s.agentAPICheck(r.Context()))
	checks = append(checks, onboardingCheck{
		ID:     "agent_app",
		Status: "ok",
		Label:  "Agent app",
		Detail: s.chat.AppName(),
	})
	checks = append(checks, s.transcriptCheck())
	if s.cfg.TracingEnabled {
		checks = append(checks, onboardingCheck{
			ID:     "tracing",
			Status: "ok",
			Label:  "Tracing",
			Detail: "exporting to " + s.cfg.TracingEndpoint,
		})
	}

	resp := onboardingStatusResponse{
		AgentAPIMode:   s.cfg.AgentAPIMode,
		AppName:        s.chat.AppName(),
		TranscriptMode: s.transcriptMode(),
		Checks:         checks,
	}
	if s.cfg.AgentAPIMode == "http" {
		resp.AgentAPIURL = s.cfg.AgentAPIURL
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) agentAPICheck(ctx context.Context) onboardingCheck {
	if s.cfg.AgentAPIMode == "mock" {
		return onboardingCheck{
			ID:     "agent_api",
			Status: "warn",
			Label:  "Agent API",
			Detail: "mock host; replies echo the input",
			Fix:    "Set AGENT_API_MODE=http and start the agent host.",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()
	if err := s.host.Ping(ctx); err != nil {
		return onboardingCheck{
			ID:     "agent_api",
			Status: "error",
			Label:  "Agent API",
			Detail: fmt.Sprintf("%s unreachable (%s)", s.cfg.AgentAPIURL, agentapi.Classify(err)),
			Fix:    "Make sure `adk api_server` (or `go run ./cmd/agenthost`) is running on port 8000.",
		}
	}
	return onboardingCheck{
		ID:     "agent_api",
		Status: "ok",
		Label:  "Agent API",
		Detail: s.cfg.AgentAPIURL,
	}
}

func (s *Server) transcriptCheck() onboardingCheck {
	switch mode := s.transcriptMode(); mode {
	case "postgres", "sqlite":
		return onboardingCheck{ID: "transcript", Status: "ok", Label: "Transcript", Detail: mode}
	case "memory":
		return onboardingCheck{
			ID:     "transcript",
			Status: "warn",
			Label:  "Transcript",
			Detail: "in-memory only",
			Fix:    "Set DATABASE_URL to a postgres:// or sqlite:// URL to keep transcripts across restarts.",
		}
	default:
		return onboardingCheck{ID: "transcript", Status: "warn", Label: "Transcript", Detail: mode}
	}
}
