package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/divinegpt/divinegpt/internal/bootstrap"
	"github.com/divinegpt/divinegpt/internal/config"
	"github.com/divinegpt/divinegpt/internal/core/domain"
	"github.com/divinegpt/divinegpt/internal/core/ports"
	"github.com/divinegpt/divinegpt/internal/infrastructure/watcher"
	"github.com/divinegpt/divinegpt/internal/observability/logging"
	"github.com/divinegpt/divinegpt/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	service := cfg.ServiceName + "-worker"
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(service)
	app, err := bootstrap.New(ctx, cfg, logger,
		bootstrap.WithStateObserver(workerMetrics.ObserveBreakerState),
	)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
		return app.Queue.SubscribeDatasetUploaded(groupCtx, func(handlerCtx context.Context, datasetID string) error {
			if dataset, err := app.Repo.GetByID(handlerCtx, datasetID); err == nil {
				workerMetrics.ObserveQueueLag(service, time.Since(dataset.CreatedAt))
			}

			processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerProcessTimeout)
			defer cancel()

			started := time.Now()
			workerMetrics.StartDataset()
			err := app.ProcessUC.ProcessByID(processCtx, datasetID)
			workerMetrics.FinishDataset(service, time.Since(started), err)
			if err == nil {
				logger.Info("dataset_imported", "dataset_id", datasetID, "duration_ms", time.Since(started).Milliseconds())
			}
			return err
		})
	})

	if cfg.DatasetDropDir != "" {
		drop, err := watcher.New(cfg.DatasetDropDir, countingIngestor{next: app.IngestUC, metrics: workerMetrics, service: service},
			watcher.WithLogger(logger),
			watcher.WithSettle(cfg.WorkerDropSettleDelay),
		)
		if err != nil {
			logger.Error("drop_watcher_init_failed", "dir", cfg.DatasetDropDir, "error", err)
			os.Exit(1)
		}
		group.Go(func() error {
			return drop.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_stopped", "error", err)
		os.Exit(1)
	}
}

// countingIngestor records drop folder outcomes before handing the upload on.
type countingIngestor struct {
	next    ports.DatasetIngestor
	metrics *metrics.WorkerMetrics
	service string
}

func (c countingIngestor) Upload(ctx context.Context, corpus, filename, mimeType string, body io.Reader) (*domain.Dataset, error) {
	dataset, err := c.next.Upload(ctx, corpus, filename, mimeType, body)
	c.metrics.RecordDropImport(c.service, err)
	return dataset, err
}
