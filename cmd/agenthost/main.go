// Command agenthost serves the image_agent definition over the ADK REST api,
// the same surface `adk api_server` exposes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ent0n29/imagechat/internal/agentdef"
	"github.com/ent0n29/imagechat/internal/agenthost"
	"github.com/ent0n29/imagechat/internal/config"
	"github.com/ent0n29/imagechat/internal/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadAgentHost()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	log.SetLevel(cfg.LogLevel)

	def, err := agentdef.Load(cfg.ConfigPath)
	if err != nil {
		log.Fatalf("agent definition: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := agenthost.Run(ctx, agenthost.Config{
		Definition: def,
		APIKey:     cfg.APIKey,
		Port:       cfg.Port,
		WebUI:      cfg.WebUI,
	}); err != nil && ctx.Err() == nil {
		log.Fatalf("agent host: %v", err)
	}
}
