package repository

import (
	"context"
	"errors"
	"time"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/pagination"
	"github.com/codmer/pulsedoc/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, tenant_id, entity_id, display_name, title, file_name, file_type, file_size,
	storage_path, status, created_at, updated_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		doc.ID, doc.Scope.TenantID, doc.Scope.EntityID, doc.Scope.DisplayName,
		doc.Title, doc.FileName, doc.FileType, doc.FileSize,
		nullableString(doc.StoragePath), doc.Status, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// GetByID only returns documents owned by tenantID.
func (r *DocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE tenant_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			tenantID, cursor.CreatedAt, cursor.ID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE tenant_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			tenantID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := pagination.NewPage(docs, limit, func(d *domain.Document) (string, time.Time) {
		return d.ID, d.CreatedAt
	})
	return &page, nil
}

// Delete removes the document; its chunks go with it through ON DELETE CASCADE.
func (r *DocumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	var storagePath *string
	var status string
	err := row.Scan(
		&doc.ID, &doc.Scope.TenantID, &doc.Scope.EntityID, &doc.Scope.DisplayName,
		&doc.Title, &doc.FileName, &doc.FileType, &doc.FileSize,
		&storagePath, &status, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if storagePath != nil {
		doc.StoragePath = *storagePath
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}
