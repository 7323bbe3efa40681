package domain

import (
	"fmt"
	"strings"
)

// Scope partitions documents and chunks so retrieval never crosses
// unrelated businesses. TenantID is the business, EntityID and
// DisplayName select the logical group inside it.
type Scope struct {
	TenantID    string
	EntityID    int64
	DisplayName string
}

// NewScope trims the display name and returns the scope.
func NewScope(tenantID string, entityID int64, displayName string) Scope {
	return Scope{
		TenantID:    strings.TrimSpace(tenantID),
		EntityID:    entityID,
		DisplayName: strings.TrimSpace(displayName),
	}
}

// Validate reports the first missing key as a validation error.
func (s Scope) Validate() error {
	if s.TenantID == "" {
		return NewDomainError(ErrCodeValidation, "tenant id is required")
	}
	if s.EntityID <= 0 {
		return NewDomainError(ErrCodeValidation, "entity_id is required")
	}
	if strings.TrimSpace(s.DisplayName) == "" {
		return NewDomainError(ErrCodeValidation, "display_name is required")
	}
	return nil
}

// Key renders the scope as a stable cache key fragment.
func (s Scope) Key() string {
	return fmt.Sprintf("%s|%d|%s", s.TenantID, s.EntityID, s.DisplayName)
}
