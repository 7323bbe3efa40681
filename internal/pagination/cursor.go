// Package pagination implements keyset cursors over (created_at, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

const separator = "|"

// ErrInvalidCursor is returned for cursors that were not produced by Encode.
var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor is the position after which the next page starts. Rows are
// ordered newest first, so the next page holds rows strictly older than
// (CreatedAt, ID).
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Page is one slice of a keyset-ordered listing.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// Encode returns an opaque, URL-safe cursor. An empty id yields "".
func Encode(id string, createdAt time.Time) string {
	if id == "" {
		return ""
	}
	raw := createdAt.UTC().Format(time.RFC3339Nano) + separator + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a cursor from Encode. The empty cursor decodes to nil,
// meaning the first page.
func Decode(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), separator)
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}

// NewPage builds a page from rows fetched with LIMIT limit+1. The extra row,
// when present, only signals that another page exists and is dropped.
func NewPage[T any](rows []T, limit int, key func(T) (string, time.Time)) Page[T] {
	page := Page[T]{Items: rows}
	if len(rows) <= limit {
		return page
	}
	page.Items = rows[:limit]
	page.HasMore = true
	page.NextCursor = Encode(key(page.Items[limit-1]))
	return page
}
