package httpapi

import (
	"net/http"

	"github.com/ent0n29/imagechat/internal/chat"
)

type uiSettingsResponse struct {
	AppName             string   `json:"app_name"`
	MaxImageBytes       int64    `json:"max_image_bytes"`
	AcceptedImageTypes  []string `json:"accepted_image_types"`
	InactivityTimeoutMS int64    `json:"inactivity_timeout_ms"`
	AgentAPIMode        string   `json:"agent_api_mode"`
}

func (s *Server) handleUISettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, uiSettingsResponse{
		AppName:             s.chat.AppName(),
		MaxImageBytes:       s.cfg.MaxImageBytes,
		AcceptedImageTypes:  chat.AcceptedImageTypes(),
		InactivityTimeoutMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
		AgentAPIMode:        s.cfg.AgentAPIMode,
	})
}
