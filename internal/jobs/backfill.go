package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/logging"
)

const DefaultBackfillBatchSize = 50

// ChunkBackfillRepository finds and repairs chunks stored without an embedding.
type ChunkBackfillRepository interface {
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// Embedder is satisfied by the embedding cache.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingBackfill embeds chunks whose embedding failed at ingestion so
// they become visible to similarity search.
type EmbeddingBackfill struct {
	repo      ChunkBackfillRepository
	embedder  Embedder
	batchSize int
	logger    *slog.Logger
}

func NewEmbeddingBackfill(repo ChunkBackfillRepository, embedder Embedder, batchSize int, logger *slog.Logger) *EmbeddingBackfill {
	if batchSize <= 0 {
		batchSize = DefaultBackfillBatchSize
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &EmbeddingBackfill{
		repo:      repo,
		embedder:  embedder,
		batchSize: batchSize,
		logger:    logger,
	}
}

// ProcessJobs implements the JobProcessor interface. The batch stops at
// the first embedding failure; the rest waits for the next poll.
func (b *EmbeddingBackfill) ProcessJobs(ctx context.Context) error {
	chunks, err := b.repo.ListMissingEmbeddings(ctx, b.batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch chunks without embedding: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	b.logger.InfoContext(ctx, "backfilling chunk embeddings", "chunks", len(chunks))

	repaired := 0
	for _, chunk := range chunks {
		vector, err := b.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			b.logger.WarnContext(ctx, "embedding still failing, deferring backfill",
				"chunk_id", chunk.ID, "document_id", chunk.DocumentID, "error", err)
			break
		}
		if err := b.repo.UpdateEmbedding(ctx, chunk.ID, vector); err != nil {
			return fmt.Errorf("failed to store embedding for chunk %s: %w", chunk.ID, err)
		}
		repaired++
	}

	b.logger.InfoContext(ctx, "backfill pass finished", "repaired", repaired, "pending", len(chunks)-repaired)
	return nil
}
