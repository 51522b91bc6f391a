package httpapi

import (
	"net/http"

	"github.com/ent0n29/imagechat/internal/observability"
)

type latencyResponse struct {
	AgentAPIMode string `json:"agent_api_mode"`
	AppName      string `json:"app_name"`
	observability.LatencySnapshot
}

// handlePerfLatency reports agent host call latency against the configured
// p95 targets.
func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	resp := latencyResponse{
		AgentAPIMode: s.cfg.AgentAPIMode,
		AppName:      s.cfg.AgentAppName,
	}
	if s.metrics != nil {
		resp.LatencySnapshot = s.metrics.SnapshotLatency()
	}
	if resp.Calls == nil {
		resp.Calls = []observability.CallStats{}
	}
	respondJSON(w, http.StatusOK, resp)
}
