package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ent0n29/imagechat/internal/agentapi"
	"github.com/ent0n29/imagechat/internal/config"
	"github.com/ent0n29/imagechat/internal/log"
)

type hostSetup struct {
	host    agentapi.Host
	detail  string
	cleanup func()
}

// resolveAgentHost builds the host client for cfg and probes it once. An
// unreachable host is reported, not fatal: the UI surfaces the failure on the
// first session request.
func resolveAgentHost(ctx context.Context, cfg config.Config) (hostSetup, error) {
	var setup hostSetup
	if stop, addr := maybeAutoStartAgentHost(ctx, cfg); stop != nil {
		log.Infow("agent host autostarted", "addr", addr)
		setup.cleanup = stop
	}

	host, err := agentapi.NewHost(agentapi.Config{
		Mode:    cfg.AgentAPIMode,
		BaseURL: cfg.AgentAPIURL,
		Timeout: cfg.AgentAPITimeout,
	})
	if err != nil {
		if setup.cleanup != nil {
			setup.cleanup()
		}
		return hostSetup{}, fmt.Errorf("agent api init failed: %w", err)
	}
	setup.host = host

	if cfg.AgentAPIMode == "mock" {
		setup.detail = "mock"
		log.Infow("agent api: mock host")
		return setup, nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := host.Ping(probeCtx); err != nil {
		setup.detail = fmt.Sprintf("%s (unreachable: %s)", cfg.AgentAPIURL, agentapi.Classify(err))
		log.Warnw("agent api unreachable at startup", "url", cfg.AgentAPIURL, "error", err)
		return setup, nil
	}
	setup.detail = cfg.AgentAPIURL
	log.Infow("agent api reachable", "url", cfg.AgentAPIURL, "app_name", cfg.AgentAppName)
	return setup, nil
}
