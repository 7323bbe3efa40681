package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/codmer/pulsedoc/internal/domain"
)

const apiKeyPrefix = "pdk_"

type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByName(ctx context.Context, name string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	GetByTenantID(ctx context.Context, tenantID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// AuthService issues API keys and resolves them to the tenant whose
// documents a request may touch.
type AuthService struct {
	tenantRepo TenantRepository
	keyRepo    APIKeyRepository
	uuidGen    UUIDGenerator
}

func NewAuthService(tenantRepo TenantRepository, keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &AuthService{
		tenantRepo: tenantRepo,
		keyRepo:    keyRepo,
		uuidGen:    uuidGen,
	}
}

func (s *AuthService) CreateTenant(ctx context.Context, name string) (*domain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant name is required")
	}

	tenant := domain.NewTenant(s.uuidGen.NewString(), name, time.Now().UTC())
	if err := domain.ValidateTenant(tenant); err != nil {
		return nil, err
	}

	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	return tenant, nil
}

// GetOrCreateTenant is used by bootstrap paths that must be idempotent.
func (s *AuthService) GetOrCreateTenant(ctx context.Context, name string) (*domain.Tenant, error) {
	tenant, err := s.tenantRepo.GetByName(ctx, strings.TrimSpace(name))
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, domain.ErrTenantNotFound) {
		return nil, err
	}
	return s.CreateTenant(ctx, name)
}

func (s *AuthService) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	return s.tenantRepo.List(ctx)
}

func (s *AuthService) CreateAPIKey(ctx context.Context, tenantID, name string) (string, error) {
	if tenantID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}

	_, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return "", err
	}

	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	hash := hashToken(token)

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		Name:      name,
		KeyHash:   hash,
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return "", err
	}

	if err := s.keyRepo.Create(ctx, key); err != nil {
		return "", err
	}

	return token, nil
}

func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, tenantID, name, token string) error {
	if tenantID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected pdk_<64 hex chars>)")
	}

	_, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}

	hash := hashToken(token)

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		TenantID:  tenantID,
		Name:      name,
		KeyHash:   hash,
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}

	if err := domain.ValidateAPIKey(key); err != nil {
		return err
	}

	return s.keyRepo.Create(ctx, key)
}

func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if !IsValidAPIToken(token) {
		return "", domain.ErrInvalidAPIKey
	}

	hash := hashToken(token)

	key, err := s.keyRepo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return "", domain.ErrInvalidAPIKey
		}
		return "", err
	}

	if key.IsRevoked() {
		return "", domain.ErrAPIKeyRevoked
	}

	return key.TenantID, nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	if tenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}

	return s.keyRepo.GetByTenantID(ctx, tenantID)
}

func generateAPIToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func IsValidAPIToken(token string) bool {
	if !strings.HasPrefix(token, apiKeyPrefix) {
		return false
	}
	hexPart := token[len(apiKeyPrefix):]
	if len(hexPart) != 64 {
		return false
	}
	for _, c := range hexPart {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
