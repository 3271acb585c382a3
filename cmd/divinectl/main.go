package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/divinegpt/divinegpt/internal/adapters/cli"
	"github.com/divinegpt/divinegpt/internal/bootstrap"
	"github.com/divinegpt/divinegpt/internal/config"
	"github.com/divinegpt/divinegpt/internal/core/usecase"
	"github.com/divinegpt/divinegpt/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(func(ctx context.Context) (*cli.Services, error) {
		cfg := config.Load()
		logger := logging.NewJSONLoggerTo(os.Stderr, cfg.ServiceName+"-ctl", cfg.LogLevel)
		core, err := bootstrap.NewCore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Answers:   core.AnswerUC,
			Retriever: core.Retriever,
			Prompts:   core.Prompts,
			Catalog:   core.Catalog,
			Indexer:   usecase.NewVerseIndexer(core.Embedder, core.Indexer),
		}, nil
	})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
