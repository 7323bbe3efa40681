package repository

import (
	"context"
	"time"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository stores document chunks and serves nearest-neighbour
// lookups over their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) Save(ctx context.Context, c *domain.Chunk) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO document_chunks
			(id, document_id, tenant_id, entity_id, display_name, chunk_index, content,
			 prev_content, next_content, embedding, embedding_dimension, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID,
		c.DocumentID,
		c.Scope.TenantID,
		c.Scope.EntityID,
		c.Scope.DisplayName,
		c.Index,
		c.Content,
		c.PrevContent,
		c.NextContent,
		embeddingValue(c.Embedding),
		c.EmbeddingDimension,
		createdAt,
	)
	return err
}

// FindNearest orders by L2 distance and skips chunks stored without an
// embedding.
func (r *ChunkRepository) FindNearest(ctx context.Context, scope domain.Scope, embedding []float32, limit int) ([]*domain.Chunk, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, tenant_id, entity_id, display_name, chunk_index, content,
		        prev_content, next_content, embedding_dimension, created_at
		 FROM document_chunks
		 WHERE tenant_id = $1 AND entity_id = $2 AND display_name = $3 AND embedding IS NOT NULL
		 ORDER BY embedding <-> $4
		 LIMIT $5`,
		scope.TenantID, scope.EntityID, scope.DisplayName, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// ListMissingEmbeddings returns the oldest chunks that were stored while
// the embedding provider was failing.
func (r *ChunkRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.Chunk, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, tenant_id, entity_id, display_name, chunk_index, content,
		        prev_content, next_content, embedding_dimension, created_at
		 FROM document_chunks
		 WHERE embedding IS NULL
		 ORDER BY created_at ASC, id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE document_chunks SET embedding = $1, embedding_dimension = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), len(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrCodeNotFound, "chunk not found")
	}
	return nil
}

func embeddingValue(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	vec := pgvector.NewVector(embedding)
	return &vec
}

func scanChunkRows(rows pgx.Rows) ([]*domain.Chunk, error) {
	chunks := make([]*domain.Chunk, 0)
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.Scope.TenantID, &c.Scope.EntityID, &c.Scope.DisplayName,
			&c.Index, &c.Content, &c.PrevContent, &c.NextContent, &c.EmbeddingDimension, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}
