package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByTenantID(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestAuthService_CreateTenant(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("tenant-123")

	mockTenantRepo.On("Create", ctx, mock.MatchedBy(func(tenant *domain.Tenant) bool {
		return tenant.Name == "Spice Garden" && tenant.ID == "tenant-123"
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	tenant, err := service.CreateTenant(ctx, "Spice Garden")

	require.NoError(t, err)
	assert.Equal(t, "tenant-123", tenant.ID)
	assert.Equal(t, "Spice Garden", tenant.Name)
	mockTenantRepo.AssertExpectations(t)
}

func TestAuthService_CreateTenant_EmptyName(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	_, err := service.CreateTenant(ctx, "")

	assert.Error(t, err)
	mockTenantRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_CreateAPIKey_GeneratesPdkToken(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{
		ID:        "tenant-123",
		Name:      "Spice Garden",
		CreatedAt: time.Now().UTC(),
	}, nil)

	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.ID == "key-123" && key.KeyHash != "" && len(key.KeyHash) == 64
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	token, err := service.CreateAPIKey(ctx, "tenant-123", "pos-terminal")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "pdk_"), "token should start with pdk_")
	assert.Equal(t, 68, len(token), "token should be pdk_ + 64 hex chars")
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKey_StoresSHA256Hash(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{
		ID:        "tenant-123",
		Name:      "Spice Garden",
		CreatedAt: time.Now().UTC(),
	}, nil)

	var capturedKey *domain.APIKey
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		capturedKey = key
		return true
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	token, err := service.CreateAPIKey(ctx, "tenant-123", "pos-terminal")

	require.NoError(t, err)
	require.NotNil(t, capturedKey)
	assert.NotEqual(t, token, capturedKey.KeyHash)
	assert.Equal(t, 64, len(capturedKey.KeyHash), "SHA256 hash should be 64 hex chars")
}

func TestAuthService_ValidateAPIKey_ValidToken(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{
		ID:        "tenant-123",
		Name:      "Spice Garden",
		CreatedAt: time.Now().UTC(),
	}, nil)

	var storedHash string
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		storedHash = key.KeyHash
		return true
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	token, _ := service.CreateAPIKey(ctx, "tenant-123", "pos-terminal")

	mockAPIKeyRepo.On("GetByHash", ctx, storedHash).Return(&domain.APIKey{
		ID:        "key-123",
		TenantID:     "tenant-123",
		Name:      "pos-terminal",
		KeyHash:   storedHash,
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}, nil)

	tenantID, err := service.ValidateAPIKey(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-123", tenantID)
}

func TestAuthService_ValidateAPIKey_InvalidToken(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	_, err := service.ValidateAPIKey(ctx, "invalid-token")

	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestAuthService_ValidateAPIKey_NotFound(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	mockAPIKeyRepo.On("GetByHash", ctx, mock.Anything).Return(nil, domain.ErrAPIKeyNotFound)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	_, err := service.ValidateAPIKey(ctx, "pdk_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestAuthService_ValidateAPIKey_RevokedKey(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	revokedAt := time.Now().UTC()
	mockAPIKeyRepo.On("GetByHash", ctx, mock.Anything).Return(&domain.APIKey{
		ID:        "key-123",
		TenantID:     "tenant-123",
		Name:      "pos-terminal",
		KeyHash:   "somehash",
		CreatedAt: time.Now().UTC(),
		RevokedAt: &revokedAt,
	}, nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	_, err := service.ValidateAPIKey(ctx, "pdk_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	assert.ErrorIs(t, err, domain.ErrAPIKeyRevoked)
}

func TestAuthService_RevokeAPIKey(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	mockAPIKeyRepo.On("Revoke", ctx, "key-123").Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	err := service.RevokeAPIKey(ctx, "key-123")

	require.NoError(t, err)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_RevokeAPIKey_NotFound(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	mockAPIKeyRepo.On("Revoke", ctx, "key-123").Return(domain.ErrAPIKeyNotFound)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	err := service.RevokeAPIKey(ctx, "key-123")

	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}

func TestAuthService_ListAPIKeys(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	keys := []*domain.APIKey{
		{ID: "key-1", TenantID: "tenant-123", Name: "key1", KeyHash: "hash1", CreatedAt: time.Now().UTC()},
		{ID: "key-2", TenantID: "tenant-123", Name: "key2", KeyHash: "hash2", CreatedAt: time.Now().UTC()},
	}

	mockAPIKeyRepo.On("GetByTenantID", ctx, "tenant-123").Return(keys, nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	result, err := service.ListAPIKeys(ctx, "tenant-123")

	require.NoError(t, err)
	assert.Len(t, result, 2)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKey_EmptyTenantID(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	_, err := service.CreateAPIKey(ctx, "", "pos-terminal")

	assert.Error(t, err)
}

func TestAuthService_CreateAPIKey_EmptyName(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	_, err := service.CreateAPIKey(ctx, "tenant-123", "")

	assert.Error(t, err)
}

func TestAuthService_RevokeAPIKey_EmptyID(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	err := service.RevokeAPIKey(ctx, "")

	assert.Error(t, err)
}

func TestAuthService_ListAPIKeys_EmptyTenantID(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	_, err := service.ListAPIKeys(ctx, "")

	assert.Error(t, err)
}

func TestIsValidAPIToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid token", "pdk_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", true},
		{"valid uppercase", "pdk_0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", true},
		{"missing prefix", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"wrong prefix", "abc_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"too short", "pdk_0123456789abcdef", false},
		{"too long", "pdk_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef00", false},
		{"invalid chars", "pdk_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdeg", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidAPIToken(tt.token)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthService_CreateAPIKeyWithToken(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{
		ID:        "tenant-123",
		Name:      "Spice Garden",
		CreatedAt: time.Now().UTC(),
	}, nil)

	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.TenantID == "tenant-123" && key.Name == "pos-terminal"
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	err := service.CreateAPIKeyWithToken(ctx, "tenant-123", "pos-terminal", "pdk_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	require.NoError(t, err)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKeyWithToken_InvalidFormat(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator()

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	err := service.CreateAPIKeyWithToken(ctx, "tenant-123", "pos-terminal", "invalid-token")

	assert.Error(t, err)
}

func TestAuthService_GetOrCreateTenant_Existing(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	existing := &domain.Tenant{ID: "tenant-123", Name: "Spice Garden"}
	mockTenantRepo.On("GetByName", ctx, "Spice Garden").Return(existing, nil)

	service := NewAuthService(mockTenantRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator())
	tenant, err := service.GetOrCreateTenant(ctx, " Spice Garden ")

	require.NoError(t, err)
	assert.Same(t, existing, tenant)
	mockTenantRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_GetOrCreateTenant_Creates(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockTenantRepo.On("GetByName", ctx, "Spice Garden").Return(nil, domain.ErrTenantNotFound)
	mockTenantRepo.On("Create", ctx, mock.AnythingOfType("*domain.Tenant")).Return(nil)

	service := NewAuthService(mockTenantRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator("tenant-9"))
	tenant, err := service.GetOrCreateTenant(ctx, "Spice Garden")

	require.NoError(t, err)
	assert.Equal(t, "tenant-9", tenant.ID)
	mockTenantRepo.AssertExpectations(t)
}

func TestAuthService_GetOrCreateTenant_LookupError(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	dbErr := errors.New("connection refused")
	mockTenantRepo.On("GetByName", ctx, "Spice Garden").Return(nil, dbErr)

	service := NewAuthService(mockTenantRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator())
	_, err := service.GetOrCreateTenant(ctx, "Spice Garden")

	assert.ErrorIs(t, err, dbErr)
}
