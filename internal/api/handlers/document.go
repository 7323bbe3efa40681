package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/codmer/pulsedoc/internal/api"
	"github.com/codmer/pulsedoc/internal/api/middleware"
	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/service"
	"github.com/go-chi/chi/v5"
)

const (
	timeLayout = "2006-01-02T15:04:05Z"

	defaultMaxUploadBytes int64 = 20 << 20
	// Multipart parts beyond this stay on disk until the handler returns.
	multipartMemory int64 = 8 << 20
)

type DocumentService interface {
	UploadAndIndex(ctx context.Context, input service.UploadInput) (*domain.UploadResult, error)
	AnswerQuery(ctx context.Context, input service.QueryInput) (*domain.QueryResult, error)
	GetDocument(ctx context.Context, tenantID, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsResult, error)
	DeleteDocument(ctx context.Context, tenantID, id string) error
	GetDownloadURL(ctx context.Context, tenantID, id string) (string, error)
}

type DocumentHandler struct {
	svc            DocumentService
	maxUploadBytes int64
}

func NewDocumentHandler(svc DocumentService, maxUploadBytes int64) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &DocumentHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

type DocumentResponse struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	EntityID    int64  `json:"entity_id"`
	DisplayName string `json:"display_name"`
	Title       string `json:"title"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	Stored      bool   `json:"stored"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type UploadResponse struct {
	Document      *DocumentResponse `json:"document"`
	ChunkCount    int               `json:"chunk_count"`
	EmbeddedCount int               `json:"embedded_count"`
	Message       string            `json:"message"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

type SearchRequest struct {
	EntityID    int64  `json:"entity_id"`
	DisplayName string `json:"display_name"`
	Query       string `json:"query"`
	TopK        int    `json:"top_k"`
}

type OrderResponse struct {
	Status    string   `json:"status"`
	Confirmed bool     `json:"confirmed"`
	Requested []string `json:"requested"`
	Available []string `json:"available"`
	Missing   []string `json:"missing"`
	MenuItems []string `json:"menu_items,omitempty"`
	Message   string   `json:"message"`
}

type SearchResponse struct {
	Query       string         `json:"query"`
	EntityID    int64          `json:"entity_id"`
	DisplayName string         `json:"display_name"`
	Intent      string         `json:"intent"`
	Answer      string         `json:"answer"`
	Order       *OrderResponse `json:"order,omitempty"`
}

type DownloadResponse struct {
	URL string `json:"url"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:          d.ID,
		TenantID:    d.Scope.TenantID,
		EntityID:    d.Scope.EntityID,
		DisplayName: d.Scope.DisplayName,
		Title:       d.Title,
		FileName:    d.FileName,
		FileType:    d.FileType,
		FileSize:    d.FileSize,
		Stored:      d.StoragePath != "",
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt.Format(timeLayout),
		UpdatedAt:   d.UpdatedAt.Format(timeLayout),
	}
}

func queryResultToResponse(res *domain.QueryResult) *SearchResponse {
	resp := &SearchResponse{
		Query:       res.Query,
		EntityID:    res.Scope.EntityID,
		DisplayName: res.Scope.DisplayName,
		Intent:      string(res.Intent),
		Answer:      res.Answer,
	}
	if o := res.Order; o != nil {
		resp.Order = &OrderResponse{
			Status:    string(o.Status),
			Confirmed: o.Status.IsConfirmed(),
			Requested: nonNil(o.Requested),
			Available: nonNil(o.Available),
			Missing:   nonNil(o.Missing),
			MenuItems: o.MenuItems,
			Message:   o.Message,
		}
	}
	return resp
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	entityID, err := parseEntityID(r.FormValue("entity_id"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "entity_id must be a positive integer")
		return
	}
	displayName := strings.TrimSpace(r.FormValue("display_name"))
	if displayName == "" {
		api.Error(w, http.StatusBadRequest, "display_name is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	result, err := h.svc.UploadAndIndex(r.Context(), service.UploadInput{
		Scope:       domain.NewScope(tenantID, entityID, displayName),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, UploadResponse{
		Document:      documentToResponse(result.Document),
		ChunkCount:    result.ChunkCount,
		EmbeddedCount: result.EmbeddedCount,
		Message:       result.Message,
	})
}

func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.svc.AnswerQuery(r.Context(), service.QueryInput{
		Scope: domain.NewScope(tenantID, req.EntityID, req.DisplayName),
		Query: req.Query,
		TopK:  req.TopK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, queryResultToResponse(result))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.ListDocuments(r.Context(), service.ListDocumentsInput{
		TenantID: tenantID,
		Cursor:   r.URL.Query().Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(output.Items))
	for i, d := range output.Items {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), tenantID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), tenantID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.GetDownloadURL(r.Context(), tenantID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadResponse{URL: url})
}

func parseEntityID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("entity_id must be positive")
	}
	return id, nil
}
