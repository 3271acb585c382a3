package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/divinegpt/divinegpt/internal/adapters/mcp"
	"github.com/divinegpt/divinegpt/internal/bootstrap"
	"github.com/divinegpt/divinegpt/internal/config"
	"github.com/divinegpt/divinegpt/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, cfg.ServiceName+"-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := bootstrap.NewCore(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	srv := mcpadapter.NewServer(core.AnswerUC, core.Catalog, version)
	logger.Info("mcp_stdio_started", "version", version)
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp_stdio_failed", "error", err)
		os.Exit(1)
	}
}
