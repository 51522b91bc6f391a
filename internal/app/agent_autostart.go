package app

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ent0n29/imagechat/internal/agentdef"
	"github.com/ent0n29/imagechat/internal/agenthost"
	"github.com/ent0n29/imagechat/internal/config"
	"github.com/ent0n29/imagechat/internal/log"
)

// maybeAutoStartAgentHost serves the agent in-process when autostart is on,
// AGENT_API_URL is a loopback address and nothing listens there yet. stop is
// nil when nothing was started.
func maybeAutoStartAgentHost(ctx context.Context, cfg config.Config) (stop func(), addr string) {
	if !cfg.AgentAutoStart || cfg.AgentAPIMode != "http" {
		return nil, ""
	}
	u, err := url.Parse(cfg.AgentAPIURL)
	if err != nil {
		return nil, ""
	}
	host := strings.ToLower(u.Hostname())
	// Never start an agent on behalf of a remote URL.
	if host != "127.0.0.1" && host != "localhost" && host != "::1" {
		log.Warnw("agent autostart skipped: AGENT_API_URL is not loopback", "url", cfg.AgentAPIURL)
		return nil, ""
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	addr = net.JoinHostPort(host, port)
	if isTCPListening(addr, 220*time.Millisecond) {
		return nil, ""
	}

	hostCfg, err := config.LoadAgentHost()
	if err != nil {
		log.Warnw("agent autostart skipped", "error", err)
		return nil, ""
	}
	def, err := agentdef.Load(hostCfg.ConfigPath)
	if err != nil {
		log.Warnw("agent autostart skipped", "error", err)
		return nil, ""
	}
	if def.Name != cfg.AgentAppName {
		log.Warnw("autostarted agent name differs from AGENT_APP_NAME; runs will fail",
			"agent", def.Name, "app_name", cfg.AgentAppName)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, ""
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		err := agenthost.Run(runCtx, agenthost.Config{
			Definition: def,
			APIKey:     hostCfg.APIKey,
			Port:       portNum,
			WebUI:      hostCfg.WebUI,
		})
		if err != nil && runCtx.Err() == nil {
			log.Errorw("in-process agent host stopped", "error", err)
		}
	}()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if isTCPListening(addr, 160*time.Millisecond) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cancel, addr
}

func isTCPListening(addr string, timeout time.Duration) bool {
	if strings.TrimSpace(addr) == "" {
		return false
	}
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}
