package domain

import (
	"fmt"
	"time"
)

// DocumentStatus tracks ingestion progress of an uploaded document
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "PROCESSING"
	DocumentStatusReady      DocumentStatus = "READY"
	DocumentStatusEmpty      DocumentStatus = "EMPTY"
	DocumentStatusFailed     DocumentStatus = "FAILED"
)

// Document is an uploaded file whose extracted text is indexed as chunks.
type Document struct {
	ID          string
	Scope       Scope
	Title       string
	FileName    string
	FileType    string
	FileSize    int64
	StoragePath string // object key when the raw file was stored, empty otherwise
	Status      DocumentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsTerminal reports whether ingestion has finished for the document.
func (d *Document) IsTerminal() bool {
	return d.Status != DocumentStatusProcessing
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Scope.TenantID == "" {
		return fmt.Errorf("document TenantID is required")
	}

	if d.Scope.EntityID <= 0 {
		return fmt.Errorf("document EntityID is required")
	}

	if d.Scope.DisplayName == "" {
		return fmt.Errorf("document DisplayName is required")
	}

	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}

	if !IsValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

// IsValidDocumentStatus checks if a DocumentStatus is valid
func IsValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusReady, DocumentStatusEmpty, DocumentStatusFailed:
		return true
	}
	return false
}

// UploadResult summarizes one upload-and-index run.
type UploadResult struct {
	Document      *Document
	ChunkCount    int
	EmbeddedCount int
	Message       string
}
