package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/divinegpt/divinegpt/internal/config"
	"github.com/divinegpt/divinegpt/internal/core/ports"
	"github.com/divinegpt/divinegpt/internal/core/usecase"
	"github.com/divinegpt/divinegpt/internal/infrastructure/dataset"
	"github.com/divinegpt/divinegpt/internal/infrastructure/llm"
	"github.com/divinegpt/divinegpt/internal/infrastructure/llm/gemini"
	"github.com/divinegpt/divinegpt/internal/infrastructure/llm/ollama"
	"github.com/divinegpt/divinegpt/internal/infrastructure/queue/nats"
	"github.com/divinegpt/divinegpt/internal/infrastructure/repository/postgres"
	"github.com/divinegpt/divinegpt/internal/infrastructure/resilience"
	"github.com/divinegpt/divinegpt/internal/infrastructure/storage/localfs"
	"github.com/divinegpt/divinegpt/internal/infrastructure/vector/memory"
	"github.com/divinegpt/divinegpt/internal/infrastructure/vector/qdrant"
)

type vectorStore interface {
	ports.PassageStore
	ports.PassageIndexer
}

type options struct {
	answerObserver ports.AnswerObserver
	stateObserver  resilience.StateObserver
}

type Option func(*options)

func WithAnswerObserver(observer ports.AnswerObserver) Option {
	return func(o *options) {
		o.answerObserver = observer
	}
}

// WithStateObserver receives circuit breaker transitions of every adapter.
func WithStateObserver(observer resilience.StateObserver) Option {
	return func(o *options) {
		o.stateObserver = observer
	}
}

// Core is the guidance pipeline without the dataset import side. It needs
// only a generator, an embedder and a vector store.
type Core struct {
	Config   config.Config
	Logger   *slog.Logger
	Catalog  *config.Catalog
	Executor *resilience.Executor

	Embedder  ports.Embedder
	Generator ports.Generator
	Store     ports.PassageStore
	Indexer   ports.PassageIndexer

	Retriever *usecase.Retriever
	Prompts   *usecase.PromptBuilder
	AnswerUC  *usecase.AnswerUseCase
}

func NewCore(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Core, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	catalog, err := config.LoadCatalog(cfg.CorpusCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load corpus catalog: %w", err)
	}

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.RetryMaxAttempts = cfg.RetryMaxAttempts
	resilienceCfg.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	resilienceCfg.Logger = logger
	executor := resilience.NewExecutor(resilienceCfg)
	if o.stateObserver != nil {
		executor.OnStateChange(o.stateObserver)
	}

	embedder, generator, err := newLLM(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}
	if cfg.GeneratorInbandErrors {
		generator = llm.NewMarkerGenerator(generator)
	}

	store, err := newVectorStore(cfg, executor)
	if err != nil {
		return nil, err
	}

	retriever := usecase.NewRetriever(embedder, store, catalog)
	prompts := usecase.NewPromptBuilder(catalog, cfg.HistoryMaxMessages)
	answerOpts := []usecase.AnswerOption{
		usecase.WithAnswerLogger(logger),
		usecase.WithAnswerTimeout(cfg.AnswerTimeout),
		usecase.WithDefaultTopK(cfg.RAGTopK),
	}
	if o.answerObserver != nil {
		answerOpts = append(answerOpts, usecase.WithAnswerObserver(o.answerObserver))
	}

	logger.Info("guidance_core_ready",
		"llm_provider", cfg.LLMProvider,
		"vector_backend", cfg.VectorBackend,
		"corpora", len(catalog.Corpora()),
	)

	return &Core{
		Config:    cfg,
		Logger:    logger,
		Catalog:   catalog,
		Executor:  executor,
		Embedder:  embedder,
		Generator: generator,
		Store:     store,
		Indexer:   store,
		Retriever: retriever,
		Prompts:   prompts,
		AnswerUC:  usecase.NewAnswerUseCase(retriever, prompts, generator, answerOpts...),
	}, nil
}

func newLLM(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.Generator, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderGemini:
		client, err := gemini.New(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			GenModel:    cfg.GeminiGenModel,
			EmbedModel:  cfg.GeminiEmbedModel,
			Temperature: float32(cfg.GenerationTemperature),
			MaxTokens:   int32(cfg.GenerationMaxTokens),
		}, executor)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini: %w", err)
		}
		return gemini.NewEmbedder(client), gemini.NewGenerator(client), nil
	case config.LLMProviderOllama, "":
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel,
			ollama.WithExecutor(executor),
			ollama.WithOptions(ollama.Options{
				Temperature: cfg.GenerationTemperature,
				MaxTokens:   cfg.GenerationMaxTokens,
				JSONFormat:  false,
			}),
		)
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func newVectorStore(cfg config.Config, executor *resilience.Executor) (vectorStore, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendMemory:
		return memory.NewStore(), nil
	case config.VectorBackendQdrant, "":
		return qdrant.New(cfg.QdrantURL,
			qdrant.WithAPIKey(cfg.QdrantAPIKey),
			qdrant.WithExecutor(executor),
		), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
	}
}

// App is the full service: the guidance core plus the dataset import
// pipeline backed by postgres, NATS and local file storage.
type App struct {
	*Core

	Queue     *nats.Queue
	Repo      ports.DatasetRepository
	Storage   ports.ObjectStorage
	IngestUC  *usecase.IngestDatasetUseCase
	ProcessUC *usecase.ProcessDatasetUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	core, err := NewCore(ctx, cfg, logger, opts...)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDatasetRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: core.Executor,
		Logger:             core.Logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	parser := dataset.NewParser(storage)
	ingestUC := usecase.NewIngestDatasetUseCase(repo, storage, queue, core.Catalog)
	processUC := usecase.NewProcessDatasetUseCase(repo, core.Catalog, parser, core.Embedder, core.Indexer)

	return &App{
		Core:      core,
		Queue:     queue,
		Repo:      repo,
		Storage:   storage,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
