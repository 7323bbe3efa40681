package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/codmer/pulsedoc/internal/api"
	"github.com/codmer/pulsedoc/internal/domain"
)

type AuthService interface {
	CreateTenant(ctx context.Context, name string) (*domain.Tenant, error)
	CreateAPIKey(ctx context.Context, tenantID, name string) (string, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type CreateTenantRequest struct {
	Name string `json:"name"`
}

type TenantResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type CreateAPIKeyRequest struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

type APIKeyResponse struct {
	Token    string `json:"token"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

func (h *AuthHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	tenant, err := h.svc.CreateTenant(r.Context(), req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, TenantResponse{
		ID:        tenant.ID,
		Name:      tenant.Name,
		CreatedAt: tenant.CreatedAt.Format(timeLayout),
	})
}

func (h *AuthHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TenantID == "" {
		api.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	token, err := h.svc.CreateAPIKey(r.Context(), req.TenantID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, APIKeyResponse{
		Token:    token,
		TenantID: req.TenantID,
		Name:     req.Name,
	})
}
