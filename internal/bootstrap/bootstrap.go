package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/webpage-chat/internal/config"
	"github.com/kirillkom/webpage-chat/internal/core/ports"
	"github.com/kirillkom/webpage-chat/internal/core/usecase"
	"github.com/kirillkom/webpage-chat/internal/infrastructure/chunking"
	natsevents "github.com/kirillkom/webpage-chat/internal/infrastructure/events/nats"
	"github.com/kirillkom/webpage-chat/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/webpage-chat/internal/infrastructure/loader/web"
	"github.com/kirillkom/webpage-chat/internal/infrastructure/resilience"
	"github.com/kirillkom/webpage-chat/internal/infrastructure/vector/memory"
	"github.com/kirillkom/webpage-chat/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config   config.Config
	Sessions *usecase.SessionManager

	closeFn func()
}

func New(_ context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  uint32(cfg.BreakerMinRequests),
		BreakerFailureRatio: cfg.BreakerFailureRate,
		BreakerOpenTimeout:  cfg.BreakerOpenTimeout,
	})

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaLLMModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout:            cfg.OllamaTimeout,
		EmbedBatchSize:     cfg.EmbedBatchSize,
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	loader := web.New(web.Options{
		Timeout:   cfg.FetchTimeout,
		MaxBytes:  cfg.FetchMaxBytes,
		UserAgent: cfg.FetchUserAgent,
	})

	chunker, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	var indexer ports.VectorIndexBuilder
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		indexer = qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollectionPrefix, qdrant.Options{
			ResilienceExecutor: executor,
		})
	default:
		indexer = memory.NewBuilder()
	}

	var (
		events    ports.SessionEventPublisher
		publisher *natsevents.Publisher
	)
	if strings.TrimSpace(cfg.NATSURL) != "" {
		publisher, err = natsevents.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsevents.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		events = publisher
	}

	controller := usecase.NewController(loader, chunker, embedder, indexer, generator, events, usecase.ControllerOptions{
		TopK:            cfg.RAGTopK,
		HistoryMessages: cfg.HistoryMessages,
	})
	sessions := usecase.NewSessionManager(controller)

	slog.Info("app_initialized",
		"vector_backend", cfg.VectorBackend,
		"llm_model", cfg.OllamaLLMModel,
		"embedding_model", cfg.OllamaEmbedModel,
		"chunk_size", cfg.ChunkSize,
		"chunk_overlap", cfg.ChunkOverlap,
		"retrieval_k", cfg.RAGTopK,
		"events_enabled", publisher != nil,
	)

	return &App{
		Config:   cfg,
		Sessions: sessions,
		closeFn: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sessions.Shutdown(ctx)
			if publisher != nil {
				publisher.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
