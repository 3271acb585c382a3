package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/divinegpt/divinegpt/internal/infrastructure/resilience"
)

const (
	connectionName = "divinegpt"
	workerGroup    = "dataset-workers"
)

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

// datasetUploaded is the wire form of a dataset event.
type datasetUploaded struct {
	DatasetID  string    `json:"dataset_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name(connectionName),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Ping reports whether the connection is currently usable.
func (q *Queue) Ping(context.Context) error {
	if q.conn == nil || !q.conn.IsConnected() {
		return wrapTemporaryIfNeeded(nats.ErrDisconnected)
	}
	return nil
}

func (q *Queue) PublishDatasetUploaded(ctx context.Context, datasetID string) error {
	payload, err := encodeEvent(datasetID, time.Now().UTC())
	if err != nil {
		return err
	}

	err = q.executor.Execute(ctx, "nats_publish", func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeDatasetUploaded blocks until ctx is done, then drains the
// subscription so in-flight handlers finish.
func (q *Queue) SubscribeDatasetUploaded(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		datasetID, err := decodeEvent(msg.Data)
		if err != nil {
			q.logger.Warn("dataset_event_invalid", "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, datasetID); err != nil {
			q.logger.Error("worker_handler_failed", "dataset_id", datasetID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeEvent(datasetID string, at time.Time) ([]byte, error) {
	datasetID = strings.TrimSpace(datasetID)
	if datasetID == "" {
		return nil, errors.New("nats publish: dataset id is empty")
	}
	return json.Marshal(datasetUploaded{DatasetID: datasetID, UploadedAt: at})
}

// decodeEvent also accepts a bare id, which is what older publishers send.
func decodeEvent(data []byte) (string, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return "", errors.New("empty dataset event")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}
	var event datasetUploaded
	if err := json.Unmarshal([]byte(trimmed), &event); err != nil {
		return "", fmt.Errorf("decode dataset event: %w", err)
	}
	if strings.TrimSpace(event.DatasetID) == "" {
		return "", errors.New("dataset event has no dataset_id")
	}
	return event.DatasetID, nil
}
