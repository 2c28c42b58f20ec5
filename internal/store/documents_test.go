package store

import (
	"context"
	"errors"
	"testing"
)

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))

	created, err := s.InsertDocument(ctx, Document{
		ID:        "doc-1",
		Title:     "Plan",
		Content:   []byte(`{"type":"doc","content":[]}`),
		UpdatedBy: "ava",
	}, []Block{
		{BlockID: "block-1", Type: "paragraph", Position: 0, Text: "Quarterly Budget"},
		{BlockID: "block-2", Type: "table", Position: 1, Text: "apples pears"},
	})
	if err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("created.Version = %d, want 1", created.Version)
	}

	got, err := s.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.Title != "Plan" || string(got.Content) != `{"type":"doc","content":[]}` {
		t.Fatalf("GetDocument() = %+v", got)
	}

	updated, err := s.UpdateDocument(ctx, Document{ID: "doc-1", Title: "Plan v2", Content: []byte(`{"type":"doc"}`), UpdatedBy: "mika"}, 1,
		[]Block{{BlockID: "block-1", Type: "paragraph", Position: 0, Text: "Budget"}})
	if err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}
	if updated.Version != 2 || updated.Title != "Plan v2" || updated.UpdatedBy != "mika" {
		t.Fatalf("UpdateDocument() = %+v", updated)
	}

	blocks, err := s.ListBlocks(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ListBlocks() error = %v", err)
	}
	if len(blocks) != 1 || blocks[0].Text != "Budget" {
		t.Fatalf("ListBlocks() = %+v", blocks)
	}

	list, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(list) != 1 || list[0].Version != 2 {
		t.Fatalf("ListDocuments() = %+v", list)
	}

	if err := s.DeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if _, err := s.GetDocument(ctx, "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetDocument() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteDocument(ctx, "doc-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteDocument() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateDocumentVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))

	if _, err := s.InsertDocument(ctx, Document{ID: "doc-1", Content: []byte(`{}`)}, nil); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}
	if _, err := s.UpdateDocument(ctx, Document{ID: "doc-1", Content: []byte(`{}`)}, 1, nil); err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}
	_, err := s.UpdateDocument(ctx, Document{ID: "doc-1", Content: []byte(`{}`)}, 1, nil)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale UpdateDocument() error = %v, want ErrVersionConflict", err)
	}
	_, err = s.UpdateDocument(ctx, Document{ID: "missing", Content: []byte(`{}`)}, 1, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateDocument() on missing error = %v, want ErrNotFound", err)
	}
}

func TestSearchBlocks(t *testing.T) {
	ctx := context.Background()
	s := NewSQLStore(openTestDB(t))

	if _, err := s.InsertDocument(ctx, Document{ID: "doc-1", Title: "Fruit", Content: []byte(`{}`)}, []Block{
		{BlockID: "a", Type: "paragraph", Position: 0, Text: "Apples are red"},
		{BlockID: "b", Type: "paragraph", Position: 1, Text: "Pears are green"},
		{BlockID: "c", Type: "paragraph", Position: 2, Text: "100% apple juice"},
	}); err != nil {
		t.Fatalf("InsertDocument() error = %v", err)
	}

	hits, total, err := s.SearchBlocks(ctx, "APPLE", 10, 0)
	if err != nil {
		t.Fatalf("SearchBlocks() error = %v", err)
	}
	if total != 2 || len(hits) != 2 {
		t.Fatalf("SearchBlocks() total=%d hits=%d, want 2", total, len(hits))
	}
	if hits[0].BlockID != "a" || hits[0].Title != "Fruit" {
		t.Fatalf("first hit = %+v", hits[0])
	}

	hits, total, err = s.SearchBlocks(ctx, "0%", 10, 0)
	if err != nil {
		t.Fatalf("SearchBlocks() error = %v", err)
	}
	if total != 1 || hits[0].BlockID != "c" {
		t.Fatalf("literal percent search = %d %+v", total, hits)
	}

	hits, _, err = s.SearchBlocks(ctx, "are", 1, 1)
	if err != nil {
		t.Fatalf("SearchBlocks() error = %v", err)
	}
	if len(hits) != 1 || hits[0].BlockID != "b" {
		t.Fatalf("paged search = %+v", hits)
	}
}
