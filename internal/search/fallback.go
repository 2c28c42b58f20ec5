package search

import (
	"context"
	"strings"

	"beskar/editor/internal/store"
)

// BlockStore is the part of the document store the fallback searches.
type BlockStore interface {
	SearchBlocks(ctx context.Context, query string, limit, offset int) ([]store.BlockHit, int, error)
}

// StoreSearch implements Searcher with a substring match over the stored
// block index. It serves queries while Meilisearch is unavailable.
type StoreSearch struct {
	blocks BlockStore
}

func NewStoreSearch(blocks BlockStore) *StoreSearch {
	return &StoreSearch{blocks: blocks}
}

// Healthy always returns true; without the store nothing works anyway.
func (s *StoreSearch) Healthy() bool {
	return true
}

func (s *StoreSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(q.Offset, 0)

	hits, total, err := s.blocks.SearchBlocks(context.Background(), q.Text, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			DocumentID: h.DocumentID,
			BlockID:    h.BlockID,
			BlockType:  h.Type,
			Title:      h.Title,
			Snippet:    snippet(h.Text, q.Text, 60),
		})
	}
	return results, total, nil
}
