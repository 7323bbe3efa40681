package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/logging"
	"github.com/codmer/pulsedoc/internal/pagination"
	"github.com/codmer/pulsedoc/internal/telemetry"
)

const (
	msgDocumentEmpty   = "No text content found in document"
	msgDocumentIndexed = "Document processed and indexed"

	defaultListLimit = 20
	maxListLimit     = 100
)

// DocumentRepository defines the repository interface for document persistence
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error)
	ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type DocumentPageResult = pagination.Page[*domain.Document]

// TextExtractor turns raw file bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, fileName, mimeType string) (string, error)
}

// ChunkEmbedder is the embedding cache as seen by ingestion.
type ChunkEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions(ctx context.Context) int
}

type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, scope domain.Scope, topK int) ([]string, error)
	TopK() int
}

type AnswerGenerator interface {
	Synthesize(ctx context.Context, query string, chunks []string) (string, error)
}

type IntentDetector interface {
	IsOrderRequest(ctx context.Context, query string) (bool, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, scope domain.Scope, query string) (*domain.OrderOutcome, error)
}

// ObjectStorage keeps the raw uploaded files.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

type IngestRecorder interface {
	RecordDocument(status string)
	RecordChunks(embedded, unembedded int)
}

// DocumentServiceDeps wires a DocumentService. Storage, Answers and
// Recorder are optional.
type DocumentServiceDeps struct {
	Documents   DocumentRepository
	Tx          TxRunner
	Extractor   TextExtractor
	Chunker     *Chunker
	Embedder    ChunkEmbedder
	Retriever   ContextRetriever
	Synthesizer AnswerGenerator
	Intent      IntentDetector
	Orders      OrderPlacer
	Storage     ObjectStorage
	Answers     *AnswerCache
	Recorder    IngestRecorder
	IDs         UUIDGenerator
	Logger      *slog.Logger
}

// DocumentService ingests documents into the chunk store and answers
// queries against them.
type DocumentService struct {
	documents   DocumentRepository
	tx          TxRunner
	extractor   TextExtractor
	chunker     *Chunker
	embedder    ChunkEmbedder
	retriever   ContextRetriever
	synthesizer AnswerGenerator
	intent      IntentDetector
	orders      OrderPlacer
	storage     ObjectStorage
	answers     *AnswerCache
	recorder    IngestRecorder
	ids         UUIDGenerator
	logger      *slog.Logger
}

func NewDocumentService(deps DocumentServiceDeps) *DocumentService {
	if deps.Chunker == nil {
		deps.Chunker = NewChunker(DefaultChunkConfig())
	}
	if deps.IDs == nil {
		deps.IDs = &DefaultUUIDGenerator{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &DocumentService{
		documents:   deps.Documents,
		tx:          deps.Tx,
		extractor:   deps.Extractor,
		chunker:     deps.Chunker,
		embedder:    deps.Embedder,
		retriever:   deps.Retriever,
		synthesizer: deps.Synthesizer,
		intent:      deps.Intent,
		orders:      deps.Orders,
		storage:     deps.Storage,
		answers:     deps.Answers,
		recorder:    deps.Recorder,
		ids:         deps.IDs,
		logger:      deps.Logger,
	}
}

type UploadInput struct {
	Scope       domain.Scope
	FileName    string
	ContentType string
	Data        []byte
}

// UploadAndIndex stores the document, extracts and chunks its text and
// indexes every chunk. A chunk whose embedding fails is still stored and
// simply never matches a similarity query.
func (s *DocumentService) UploadAndIndex(ctx context.Context, input UploadInput) (*domain.UploadResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.UploadAndIndex", telemetry.SpanAttributes{
		TenantID:    input.Scope.TenantID,
		EntityID:    input.Scope.EntityID,
		DisplayName: input.Scope.DisplayName,
	})
	defer span.End()

	result, err := s.uploadAndIndex(ctx, input)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return result, nil
}

func (s *DocumentService) uploadAndIndex(ctx context.Context, input UploadInput) (*domain.UploadResult, error) {
	if len(input.Data) == 0 || strings.TrimSpace(input.FileName) == "" {
		return nil, domain.ErrMissingFile
	}
	scope := domain.NewScope(input.Scope.TenantID, input.Scope.EntityID, input.Scope.DisplayName)
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	fileName := path.Base(strings.ReplaceAll(strings.TrimSpace(input.FileName), "\\", "/"))
	doc := &domain.Document{
		ID:       s.ids.NewString(),
		Scope:    scope,
		Title:    fileName,
		FileName: fileName,
		FileType: input.ContentType,
		FileSize: int64(len(input.Data)),
		Status:   domain.DocumentStatusProcessing,
	}
	logger := s.logger.With("document_id", doc.ID, "scope", scope.Key())

	if s.storage != nil {
		key := storageKey(scope.TenantID, doc.ID, fileName)
		if err := s.storage.PutObject(ctx, key, bytes.NewReader(input.Data), doc.FileSize, input.ContentType); err != nil {
			logger.WarnContext(ctx, "storing raw file failed, continuing without it", "error", err)
		} else {
			doc.StoragePath = key
		}
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		if doc.StoragePath != "" {
			if delErr := s.storage.DeleteObject(ctx, doc.StoragePath); delErr != nil {
				logger.WarnContext(ctx, "failed to remove stored file after create failure", "key", doc.StoragePath, "error", delErr)
			}
		}
		return nil, err
	}

	text, err := s.extractor.ExtractText(ctx, input.Data, fileName, input.ContentType)
	if err != nil {
		logger.ErrorContext(ctx, "text extraction failed", "error", err)
		s.markStatus(ctx, doc, domain.DocumentStatusFailed)
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodeExtractionFailed {
			return nil, err
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExtractionFailed, domain.ErrExtractionFailed.Message, err)
	}

	segments := s.chunker.Chunk(text)
	if len(segments) == 0 {
		logger.WarnContext(ctx, "document has no text content")
		s.markStatus(ctx, doc, domain.DocumentStatusEmpty)
		s.purgeAnswers()
		return &domain.UploadResult{Document: doc, Message: msgDocumentEmpty}, nil
	}

	chunks, embedded := s.embedSegments(ctx, logger, doc, segments)

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		for _, chunk := range chunks {
			if err := repos.Chunks().Save(ctx, chunk); err != nil {
				return fmt.Errorf("save chunk %d: %w", chunk.Index, err)
			}
		}
		return repos.Documents().UpdateStatus(ctx, doc.ID, domain.DocumentStatusReady)
	})
	if err != nil {
		logger.ErrorContext(ctx, "indexing chunks failed", "error", err)
		s.markStatus(ctx, doc, domain.DocumentStatusFailed)
		return nil, err
	}
	doc.Status = domain.DocumentStatusReady

	if s.recorder != nil {
		s.recorder.RecordDocument(string(doc.Status))
		s.recorder.RecordChunks(embedded, len(chunks)-embedded)
	}
	s.purgeAnswers()

	logger.InfoContext(ctx, "document indexed", "chunks", len(chunks), "embedded", embedded)
	return &domain.UploadResult{
		Document:      doc,
		ChunkCount:    len(chunks),
		EmbeddedCount: embedded,
		Message:       msgDocumentIndexed,
	}, nil
}

func (s *DocumentService) embedSegments(ctx context.Context, logger *slog.Logger, doc *domain.Document, segments []domain.ChunkSegment) ([]*domain.Chunk, int) {
	dims := s.embedder.Dimensions(ctx)
	chunks := make([]*domain.Chunk, 0, len(segments))
	embedded := 0
	now := time.Now().UTC()

	for _, seg := range segments {
		chunk := &domain.Chunk{
			ID:                 s.ids.NewString(),
			DocumentID:         doc.ID,
			Scope:              doc.Scope,
			Index:              seg.Index,
			Content:            seg.Content,
			PrevContent:        seg.PrevContent,
			NextContent:        seg.NextContent,
			EmbeddingDimension: dims,
			CreatedAt:          now,
		}
		vector, err := s.embedder.Embed(ctx, seg.Content)
		if err != nil {
			logger.WarnContext(ctx, "chunk stored without embedding", "chunk_index", seg.Index, "error", err)
			telemetry.AddBreadcrumb(ctx, "ingest", fmt.Sprintf("chunk %d of document %s stored without embedding", seg.Index, doc.ID))
		} else {
			chunk.Embedding = vector
			embedded++
		}
		chunks = append(chunks, chunk)
	}
	return chunks, embedded
}

// markStatus records a terminal status outside the indexing transaction.
func (s *DocumentService) markStatus(ctx context.Context, doc *domain.Document, status domain.DocumentStatus) {
	doc.Status = status
	if err := s.documents.UpdateStatus(ctx, doc.ID, status); err != nil {
		s.logger.ErrorContext(ctx, "failed to update document status", "document_id", doc.ID, "status", status, "error", err)
	}
	if s.recorder != nil {
		s.recorder.RecordDocument(string(status))
	}
}

func (s *DocumentService) purgeAnswers() {
	if s.answers != nil {
		s.answers.Purge()
	}
}

type QueryInput struct {
	Scope domain.Scope
	Query string
	TopK  int
}

// AnswerQuery routes the query to the order path or the general
// retrieval path. Only general answers are cached.
func (s *DocumentService) AnswerQuery(ctx context.Context, input QueryInput) (*domain.QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.AnswerQuery", telemetry.SpanAttributes{
		TenantID:    input.Scope.TenantID,
		EntityID:    input.Scope.EntityID,
		DisplayName: input.Scope.DisplayName,
	})
	defer span.End()

	result, err := s.answerQuery(ctx, input)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return result, nil
}

func (s *DocumentService) answerQuery(ctx context.Context, input QueryInput) (*domain.QueryResult, error) {
	scope := domain.NewScope(input.Scope.TenantID, input.Scope.EntityID, input.Scope.DisplayName)
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrMissingQuery
	}

	isOrder, err := s.intent.IsOrderRequest(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	if isOrder {
		outcome, err := s.orders.PlaceOrder(ctx, scope, input.Query)
		if err != nil {
			return nil, err
		}
		return &domain.QueryResult{
			Scope:  scope,
			Query:  input.Query,
			Intent: domain.QueryIntentOrder,
			Answer: outcome.Message,
			Order:  outcome,
		}, nil
	}

	// Cache entries are keyed on the limit the retriever will actually use.
	topK := input.TopK
	if topK <= 0 {
		topK = s.retriever.TopK()
	}

	if s.answers != nil {
		if cached, ok := s.answers.Get(scope, topK, input.Query); ok {
			return cached, nil
		}
	}

	chunks, err := s.retriever.Retrieve(ctx, input.Query, scope, topK)
	if err != nil {
		return nil, err
	}
	answer, err := s.synthesizer.Synthesize(ctx, input.Query, chunks)
	if err != nil {
		return nil, err
	}

	result := &domain.QueryResult{
		Scope:  scope,
		Query:  input.Query,
		Intent: domain.QueryIntentGeneral,
		Answer: answer,
	}
	if s.answers != nil {
		s.answers.Add(scope, topK, input.Query, result)
	}
	return result, nil
}

// GetDocument returns a document owned by tenantID.
func (s *DocumentService) GetDocument(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrMissingRequiredField
	}
	return s.documents.GetByID(ctx, tenantID, id)
}

type ListDocumentsInput struct {
	TenantID string
	Cursor   string
	Limit    int
}

type ListDocumentsResult struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

func (s *DocumentService) ListDocuments(ctx context.Context, input ListDocumentsInput) (*ListDocumentsResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.ListDocuments", telemetry.SpanAttributes{
		TenantID: input.TenantID,
	})
	defer span.End()

	cursor, err := pagination.Decode(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	result, err := s.documents.ListByTenantWithCursor(ctx, input.TenantID, cursor, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &ListDocumentsResult{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// DeleteDocument removes the document and, through the foreign key, its
// chunks. The stored file is removed on a best-effort basis.
func (s *DocumentService) DeleteDocument(ctx context.Context, tenantID, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.DeleteDocument", telemetry.SpanAttributes{
		TenantID:   tenantID,
		DocumentID: id,
	})
	defer span.End()

	doc, err := s.GetDocument(ctx, tenantID, id)
	if err != nil {
		span.SetError(err)
		return err
	}

	if err := s.documents.Delete(ctx, tenantID, id); err != nil {
		span.SetError(err)
		return err
	}

	if s.storage != nil && doc.StoragePath != "" {
		if err := s.storage.DeleteObject(ctx, doc.StoragePath); err != nil {
			s.logger.WarnContext(ctx, "failed to delete stored file", "document_id", id, "key", doc.StoragePath, "error", err)
		}
	}
	s.purgeAnswers()
	return nil
}

// GetDownloadURL presigns a download of the original file.
func (s *DocumentService) GetDownloadURL(ctx context.Context, tenantID, id string) (string, error) {
	doc, err := s.GetDocument(ctx, tenantID, id)
	if err != nil {
		return "", err
	}
	if s.storage == nil || doc.StoragePath == "" {
		return "", domain.ErrStorageNotConfigured
	}

	url, err := s.storage.GenerateDownloadURL(ctx, doc.StoragePath)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrStorageOperationFail.Message, err)
	}
	return url, nil
}

func storageKey(tenantID, documentID, fileName string) string {
	return fmt.Sprintf("documents/%s/%s/%s", tenantID, documentID, fileName)
}
