// Package agenthost serves an agent definition through the ADK web runtime.
package agenthost

import (
	"context"
	"fmt"

	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/cmd/launcher"
	"google.golang.org/adk/cmd/launcher/web"
	"google.golang.org/adk/cmd/launcher/web/api"
	"google.golang.org/adk/cmd/launcher/web/webui"
	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/ent0n29/imagechat/internal/agentdef"
	"github.com/ent0n29/imagechat/internal/log"
)

// Config controls how the agent is hosted.
type Config struct {
	Definition agentdef.Definition
	APIKey     string
	Port       int
	// WebUI also mounts the ADK developer UI next to the REST api.
	WebUI bool
}

// NewModel creates the Gemini backend named by the definition.
func NewModel(ctx context.Context, def agentdef.Definition, apiKey string) (model.LLM, error) {
	llm, err := gemini.NewModel(ctx, def.Model, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init model %q: %w", def.Model, err)
	}
	return llm, nil
}

// NewAgent builds the ADK agent for def on top of llm.
func NewAgent(def agentdef.Definition, llm model.LLM) (adkagent.Agent, error) {
	a, err := llmagent.New(llmagent.Config{
		Name:        def.Name,
		Description: def.Description,
		Model:       llm,
		Instruction: def.Instruction,
	})
	if err != nil {
		return nil, fmt.Errorf("create agent %q: %w", def.Name, err)
	}
	return a, nil
}

// LauncherArgs returns the flags passed to the ADK web launcher.
func LauncherArgs(cfg Config) []string {
	args := []string{fmt.Sprintf("-port=%d", cfg.Port), "api"}
	if cfg.WebUI {
		args = append(args, "webui")
	}
	return args
}

// Run serves the agent until ctx is cancelled or the launcher fails.
func Run(ctx context.Context, cfg Config) error {
	llm, err := NewModel(ctx, cfg.Definition, cfg.APIKey)
	if err != nil {
		return err
	}
	a, err := NewAgent(cfg.Definition, llm)
	if err != nil {
		return err
	}

	launcherConfig := &launcher.Config{
		AgentLoader:    adkagent.NewSingleLoader(a),
		SessionService: session.InMemoryService(),
	}

	webLauncher := web.NewLauncher(api.NewLauncher(), webui.NewLauncher())
	if _, err := webLauncher.Parse(LauncherArgs(cfg)); err != nil {
		return fmt.Errorf("parse launcher args: %w", err)
	}

	log.Infow("agent host starting",
		"agent", cfg.Definition.Name,
		"model", cfg.Definition.Model,
		"port", cfg.Port,
		"webui", cfg.WebUI,
	)
	return webLauncher.Run(ctx, launcherConfig)
}
