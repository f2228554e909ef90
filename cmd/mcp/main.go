package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	mcpadapter "github.com/kirillkom/webpage-chat/internal/adapters/mcp"
	"github.com/kirillkom/webpage-chat/internal/bootstrap"
	"github.com/kirillkom/webpage-chat/internal/config"
	"github.com/kirillkom/webpage-chat/internal/observability/logging"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	// stdout carries the protocol stream.
	slog.SetDefault(logging.NewLogger(os.Stderr, "webchat-mcp", cfg.LogLevel))
	if err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	session, err := app.Sessions.Create(ctx)
	if err != nil {
		slog.Error("session_create_failed", "error", err)
		os.Exit(1)
	}

	slog.Info("mcp_server_starting", "session_id", session.ID, "version", version)
	if err := mcpadapter.NewServer(app.Sessions, session.ID, version).ServeStdio(); err != nil {
		slog.Error("mcp_server_failed", "error", err)
	}
}
