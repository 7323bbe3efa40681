package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codmer/pulsedoc/internal/config"
	"github.com/codmer/pulsedoc/internal/database"
	"github.com/codmer/pulsedoc/internal/extract"
	"github.com/codmer/pulsedoc/internal/metrics"
	"github.com/codmer/pulsedoc/internal/openai"
	"github.com/codmer/pulsedoc/internal/repository"
	"github.com/codmer/pulsedoc/internal/resilience"
	"github.com/codmer/pulsedoc/internal/service"
	"github.com/codmer/pulsedoc/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errOpenAINotConfigured = errors.New("PULSEDOC_OPENAI_API_KEY is required")

// stack is the fully wired document pipeline shared by serve, index and ask.
type stack struct {
	documents  *service.DocumentService
	auth       *service.AuthService
	embeddings *service.EmbeddingCache
	chunks     *repository.ChunkRepository
	storage    *storage.S3Client
}

func buildStack(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, m *metrics.Metrics, logger *slog.Logger) (*stack, error) {
	if !cfg.HasOpenAI() {
		return nil, errOpenAINotConfigured
	}

	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}

	var s3Client *storage.S3Client
	var objectStorage service.ObjectStorage
	if cfg.HasS3() {
		client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		s3Client = client
		objectStorage = client
	}

	openaiCfg := cfg.OpenAIConfig()
	openaiCfg.Resilience = resilience.NewExecutor(cfg.ResilienceConfig())
	openaiCfg.Observer = m
	provider := openai.NewClientWithConfig(openaiCfg)

	embeddings := service.NewEmbeddingCache(provider, cfg.EmbeddingCacheConfig(), m)
	retriever := service.NewRetriever(embeddings, chunkRepo, cfg.RetrieverConfig(), m, logger)
	items := service.NewItemExtractor(provider)
	matcher := service.NewMatcher(cfg.MatcherConfig(), logger)
	orders := service.NewOrderService(retriever, items, matcher, m, logger)

	documents := service.NewDocumentService(service.DocumentServiceDeps{
		Documents:   documentRepo,
		Tx:          repository.NewTxRunner(pool),
		Extractor:   extract.New(),
		Chunker:     service.NewChunker(cfg.ChunkConfig()),
		Embedder:    embeddings,
		Retriever:   retriever,
		Synthesizer: service.NewAnswerSynthesizer(provider),
		Intent:      service.NewIntentClassifier(provider),
		Orders:      orders,
		Storage:     objectStorage,
		Answers:     service.NewAnswerCache(cfg.AnswerCacheConfig(), m),
		Recorder:    m,
		IDs:         uuidGen,
		Logger:      logger,
	})

	return &stack{
		documents:  documents,
		auth:       service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen),
		embeddings: embeddings,
		chunks:     chunkRepo,
		storage:    s3Client,
	}, nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := databasePool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return pool, cfg, nil
}

func databasePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := database.NewPool(ctx, cfg.DatabaseConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}
