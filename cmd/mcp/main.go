package main

import (
	"log/slog"
	"os"

	mcpadapter "github.com/dmkuzmin/chat-assistant/internal/adapters/mcp"
	"github.com/dmkuzmin/chat-assistant/internal/config"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/fetcher/web"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/llm/ollama"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/resilience"
	"github.com/dmkuzmin/chat-assistant/internal/observability/logging"
)

const version = "1.0.0"

// The mcp binary speaks the protocol on stdout, so logs go to stderr.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewStderrLogger("mcp", cfg.LogLevel))

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	fetcher := web.New(cfg.FetchTimeout(), executor)
	describer := ollama.NewDescriber(ollama.New(cfg.OllamaURL, cfg.OllamaVisionModel, cfg.VisionTimeout(), executor))

	server := mcpadapter.NewServer(version, fetcher, describer)
	if err := server.ServeStdio(); err != nil {
		slog.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
