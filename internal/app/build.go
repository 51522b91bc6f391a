package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/imagechat/internal/agentapi"
	"github.com/ent0n29/imagechat/internal/chat"
	"github.com/ent0n29/imagechat/internal/config"
	"github.com/ent0n29/imagechat/internal/httpapi"
	"github.com/ent0n29/imagechat/internal/observability"
	"github.com/ent0n29/imagechat/internal/session"
	"github.com/ent0n29/imagechat/internal/transcript"
)

type AgentInfo struct {
	Mode    string
	AppName string
	Detail  string
}

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Sessions   *session.Manager
	Chat       *chat.Service
	Host       agentapi.Host
	Transcript transcript.Store
	Metrics    *observability.Metrics
	Agent      AgentInfo

	// Cleanup should be called on shutdown to release external resources (DB, in-process agent host).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	metrics.SetLatencyTarget(agentapi.OpCreateSession, cfg.CreateSessionP95Target)
	metrics.SetLatencyTarget(agentapi.OpRun, cfg.RunP95Target)

	store, err := transcript.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("transcript store init failed: %w", err)
	}

	hostSetup, err := resolveAgentHost(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	chatService := chat.NewService(hostSetup.host, cfg.AgentAppName,
		chat.WithObserver(metrics),
		chat.WithTranscript(store),
	)

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ string) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveClients.Set(float64(sessions.ActiveCount()))
	})

	api := httpapi.New(cfg, sessions, chatService, hostSetup.host, store, metrics)

	cleanup := func() error {
		var errs []string
		if hostSetup.cleanup != nil {
			hostSetup.cleanup()
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Sessions:   sessions,
		Chat:       chatService,
		Host:       hostSetup.host,
		Transcript: store,
		Metrics:    metrics,
		Agent: AgentInfo{
			Mode:    cfg.AgentAPIMode,
			AppName: cfg.AgentAppName,
			Detail:  hostSetup.detail,
		},
		Cleanup: cleanup,
	}, nil
}
