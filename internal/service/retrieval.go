package service

import (
	"context"
	"log/slog"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/logging"
	"github.com/codmer/pulsedoc/internal/telemetry"
)

const (
	DefaultTopK     = 5
	DefaultMenuTopK = 10

	// menuProbeQuery is embedded to pull the menu out of a business's documents.
	menuProbeQuery = "menu items prices food available"
)

// ChunkStore persists chunks and answers nearest-neighbour queries within
// a scope. FindNearest returns chunks ordered by ascending distance.
type ChunkStore interface {
	Save(ctx context.Context, chunk *domain.Chunk) error
	FindNearest(ctx context.Context, scope domain.Scope, embedding []float32, limit int) ([]*domain.Chunk, error)
}

// QueryEmbedder is the part of the embedding cache retrieval needs.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RetrievalRecorder observes how many chunks each retrieval returned.
type RetrievalRecorder interface {
	RecordRetrieval(chunks int)
}

type RetrieverConfig struct {
	TopK     int
	MenuTopK int
}

type Retriever struct {
	embedder QueryEmbedder
	store    ChunkStore
	cfg      RetrieverConfig
	recorder RetrievalRecorder
	logger   *slog.Logger
}

func NewRetriever(embedder QueryEmbedder, store ChunkStore, cfg RetrieverConfig, recorder RetrievalRecorder, logger *slog.Logger) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MenuTopK <= 0 {
		cfg.MenuTopK = DefaultMenuTopK
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Retriever{embedder: embedder, store: store, cfg: cfg, recorder: recorder, logger: logger}
}

// TopK is the chunk count used when a caller passes no limit.
func (r *Retriever) TopK() int {
	return r.cfg.TopK
}

// Retrieve returns the content of the topK chunks nearest to query inside
// scope. A non-positive topK uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query string, scope domain.Scope, topK int) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		TenantID:    scope.TenantID,
		EntityID:    scope.EntityID,
		DisplayName: scope.DisplayName,
	})
	defer span.End()

	if topK <= 0 {
		topK = r.cfg.TopK
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUpstreamUnavailable, domain.ErrRetrievalFailed.Message, err)
	}

	chunks, err := r.store.FindNearest(ctx, scope, vector, topK)
	if err != nil {
		return nil, err
	}

	contents := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		contents = append(contents, chunk.Content)
	}

	if r.recorder != nil {
		r.recorder.RecordRetrieval(len(contents))
	}
	r.logger.DebugContext(ctx, "chunks retrieved", "scope", scope.Key(), "requested", topK, "found", len(contents))
	return contents, nil
}

// RetrieveMenu pulls the chunks most likely to hold the menu for scope.
func (r *Retriever) RetrieveMenu(ctx context.Context, scope domain.Scope) ([]string, error) {
	return r.Retrieve(ctx, menuProbeQuery, scope, r.cfg.MenuTopK)
}
