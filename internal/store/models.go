package store

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
)

// Document is a stored document. Content holds the ProseMirror JSON of the
// document tree.
type Document struct {
	ID        string
	Title     string
	Content   json.RawMessage
	Version   int
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentSummary is a document without its content.
type DocumentSummary struct {
	ID        string
	Title     string
	Version   int
	UpdatedAt time.Time
}

// Block is one addressable block of a document, kept for search.
type Block struct {
	DocumentID string
	BlockID    string
	Type       string
	Position   int
	Text       string
}

// BlockHit is a block matched by a text search.
type BlockHit struct {
	Block
	Title string
}
