package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *Document {
	now := time.Now()
	return &Document{
		ID:        "doc-1",
		Scope:     Scope{TenantID: "biz-1", EntityID: 3, DisplayName: "Dinner"},
		Title:     "menu.pdf",
		Status:    DocumentStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Document)
		wantErr string
	}{
		{name: "valid", mutate: func(d *Document) {}},
		{name: "missing id", mutate: func(d *Document) { d.ID = "" }, wantErr: "ID"},
		{name: "missing tenant", mutate: func(d *Document) { d.Scope.TenantID = "" }, wantErr: "TenantID"},
		{name: "missing entity", mutate: func(d *Document) { d.Scope.EntityID = 0 }, wantErr: "EntityID"},
		{name: "missing title", mutate: func(d *Document) { d.Title = "" }, wantErr: "Title"},
		{name: "bad status", mutate: func(d *Document) { d.Status = "DONE" }, wantErr: "Status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			err := ValidateDocument(doc)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDocument_IsTerminal(t *testing.T) {
	doc := validDocument()
	assert.False(t, doc.IsTerminal())

	for _, status := range []DocumentStatus{DocumentStatusReady, DocumentStatusEmpty, DocumentStatusFailed} {
		doc.Status = status
		assert.True(t, doc.IsTerminal(), status)
	}
}

func TestChunk_HasEmbedding(t *testing.T) {
	c := &Chunk{}
	assert.False(t, c.HasEmbedding())

	c.Embedding = []float32{0.1, 0.2}
	assert.True(t, c.HasEmbedding())
}
