package search

import (
	"context"
	"log"

	"beskar/editor/internal/store"
)

// Index is what the service needs from Meilisearch.
type Index interface {
	Searcher
	IndexBlocks(records []BlockRecord) error
	DeleteBlock(id string) error
}

// Service is the facade that tries Meilisearch first and falls back to the
// store's block index.
type Service struct {
	index    Index
	fallback Searcher
	// wait makes indexing synchronous; tests set it.
	wait bool
}

// NewService creates a search service. index may be nil if Meilisearch is
// not configured.
func NewService(index Index, fallback Searcher) *Service {
	return &Service{index: index, fallback: fallback}
}

func (s *Service) Search(q Query) Response {
	if s.index != nil && s.index.Healthy() {
		results, total, err := s.index.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to store: %v", err)
	}
	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}

	results, total, err := s.fallback.Search(q)
	if err != nil {
		log.Printf("search: store search error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexDocument pushes the blocks of a saved document and drops the
// records of blocks that no longer exist (fire-and-forget).
func (s *Service) IndexDocument(title string, previous, current []store.Block) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	records := Records(title, current)
	live := make(map[string]bool, len(records))
	for _, r := range records {
		live[r.ID] = true
	}
	var stale []string
	for _, b := range previous {
		if id := recordID(b.DocumentID, b.BlockID); !live[id] {
			stale = append(stale, id)
		}
	}
	s.run(func() {
		if err := s.index.IndexBlocks(records); err != nil {
			log.Printf("search: index blocks: %v", err)
		}
		for _, id := range stale {
			if err := s.index.DeleteBlock(id); err != nil {
				log.Printf("search: delete block %s: %v", id, err)
			}
		}
	})
}

// DeleteDocument removes the records of a deleted document (fire-and-forget).
func (s *Service) DeleteDocument(blocks []store.Block) {
	s.IndexDocument("", blocks, nil)
}

// DocumentLoader lists what a reindex needs from the store.
type DocumentLoader interface {
	ListDocuments(ctx context.Context) ([]store.DocumentSummary, error)
	ListBlocks(ctx context.Context, documentID string) ([]store.Block, error)
}

// ReindexAll pushes every stored block into Meilisearch. Called during
// startup when Meilisearch is healthy.
func (s *Service) ReindexAll(ctx context.Context, loader DocumentLoader) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	docs, err := loader.ListDocuments(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	for _, d := range docs {
		blocks, err := loader.ListBlocks(ctx, d.ID)
		if err != nil {
			log.Printf("search: reindex document %s: %v", d.ID, err)
			continue
		}
		if err := s.index.IndexBlocks(Records(d.Title, blocks)); err != nil {
			log.Printf("search: reindex document %s: %v", d.ID, err)
		}
	}
}

func (s *Service) run(fn func()) {
	if s.wait {
		fn()
		return
	}
	go fn()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
