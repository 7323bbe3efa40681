package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTenant(t *testing.T) {
	now := time.Now()
	tenant := NewTenant("tenant1", "Spice Garden", now)

	assert.Equal(t, "tenant1", tenant.ID)
	assert.Equal(t, "Spice Garden", tenant.Name)
	assert.Equal(t, now, tenant.CreatedAt)
}

func TestValidateTenant(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		tenant  *Tenant
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid tenant",
			tenant:  &Tenant{ID: "tenant1", Name: "Spice Garden", CreatedAt: now},
			wantErr: false,
		},
		{
			name:    "missing ID",
			tenant:  &Tenant{Name: "Spice Garden", CreatedAt: now},
			wantErr: true,
			errMsg:  "ID",
		},
		{
			name:    "missing Name",
			tenant:  &Tenant{ID: "tenant1", CreatedAt: now},
			wantErr: true,
			errMsg:  "Name",
		},
		{
			name:    "nil tenant",
			tenant:  nil,
			wantErr: true,
			errMsg:  "nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTenant(tt.tenant)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		apiKey  *APIKey
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid key",
			apiKey:  &APIKey{ID: "key1", TenantID: "tenant1", Name: "ci", KeyHash: "hash", CreatedAt: now},
			wantErr: false,
		},
		{
			name:    "missing tenant",
			apiKey:  &APIKey{ID: "key1", Name: "ci", KeyHash: "hash", CreatedAt: now},
			wantErr: true,
			errMsg:  "TenantID",
		},
		{
			name:    "missing hash",
			apiKey:  &APIKey{ID: "key1", TenantID: "tenant1", Name: "ci", CreatedAt: now},
			wantErr: true,
			errMsg:  "KeyHash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.apiKey)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAPIKey_IsRevoked(t *testing.T) {
	key := &APIKey{ID: "key1"}
	assert.False(t, key.IsRevoked())

	revokedAt := time.Now()
	key.RevokedAt = &revokedAt
	assert.True(t, key.IsRevoked())
}
