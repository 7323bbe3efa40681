package domain

import (
	"fmt"
	"time"
)

// APIKey authenticates calls on behalf of a tenant
type APIKey struct {
	ID        string
	TenantID  string
	Name      string
	KeyHash   string // sha256 of the token, plaintext is never stored
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked returns true if the API key has been revoked
func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// ValidateAPIKey validates an APIKey instance
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return fmt.Errorf("api key cannot be nil")
	}
	if a.ID == "" {
		return fmt.Errorf("api key ID is required")
	}
	if a.TenantID == "" {
		return fmt.Errorf("api key TenantID is required")
	}
	if a.Name == "" {
		return fmt.Errorf("api key Name is required")
	}
	if a.KeyHash == "" {
		return fmt.Errorf("api key KeyHash is required")
	}
	return nil
}
