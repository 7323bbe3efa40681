//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenants := NewTenantRepository(pool)
	keys := NewAPIKeyRepository(pool)

	tenant := &domain.Tenant{ID: uuid.NewString(), Name: "Deli", CreatedAt: time.Now().UTC()}
	require.NoError(t, tenants.Create(ctx, tenant))

	key := &domain.APIKey{
		ID:        uuid.NewString(),
		TenantID:  tenant.ID,
		Name:      "ci",
		KeyHash:   "abc123",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, keys.Create(ctx, key))

	byHash, err := keys.GetByHash(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, key.ID, byHash.ID)
	assert.Equal(t, tenant.ID, byHash.TenantID)
	assert.False(t, byHash.IsRevoked())

	list, err := keys.GetByTenantID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, keys.Revoke(ctx, key.ID))
	revoked, err := keys.GetByID(ctx, key.ID)
	require.NoError(t, err)
	assert.True(t, revoked.IsRevoked())

	assert.ErrorIs(t, keys.Revoke(ctx, key.ID), domain.ErrAPIKeyNotFound)

	dup := &domain.APIKey{ID: uuid.NewString(), TenantID: tenant.ID, Name: "dup", KeyHash: "abc123", CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, keys.Create(ctx, dup), domain.ErrAPIKeyAlreadyExists)
}

func TestAPIKeyRepository_GetByHash_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	_, err := NewAPIKeyRepository(pool).GetByHash(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}
