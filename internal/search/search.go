package search

import (
	"strings"

	"beskar/editor/internal/blockid"
	"beskar/editor/internal/doc"
	"beskar/editor/internal/store"
)

// Result is a single search hit returned to the caller.
type Result struct {
	DocumentID string `json:"documentId"`
	BlockID    string `json:"blockId"`
	BlockType  string `json:"blockType"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// BlockRecord is the data we index for one block.
type BlockRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"documentId"`
	BlockID    string `json:"blockId"`
	Type       string `json:"type"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
	Title      string `json:"title"`
}

// Blocks lists the identified top-level blocks of root in document order.
func Blocks(documentID string, root *doc.Node) []store.Block {
	blocks := make([]store.Block, 0, root.ChildCount())
	for i, child := range root.Content {
		id := child.Attrs.String(blockid.Attr)
		if id == "" {
			continue
		}
		blocks = append(blocks, store.Block{
			DocumentID: documentID,
			BlockID:    id,
			Type:       child.TypeName(),
			Position:   i,
			Text:       strings.TrimSpace(child.TextContent()),
		})
	}
	return blocks
}

// Records converts stored blocks to index records.
func Records(title string, blocks []store.Block) []BlockRecord {
	out := make([]BlockRecord, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, BlockRecord{
			ID:         recordID(b.DocumentID, b.BlockID),
			DocumentID: b.DocumentID,
			BlockID:    b.BlockID,
			Type:       b.Type,
			Position:   b.Position,
			Text:       b.Text,
			Title:      title,
		})
	}
	return out
}

// recordID builds a Meilisearch primary key, which only allows
// alphanumerics, hyphens and underscores.
func recordID(documentID, blockID string) string {
	clean := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
				return r
			}
			return '-'
		}, s)
	}
	return clean(documentID) + "__" + clean(blockID)
}

// snippet returns up to radius runes of context on each side of the first
// case-insensitive match of query in text, with the match wrapped in <mark>.
func snippet(text, query string, radius int) string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	needle := []rune(strings.ToLower(strings.TrimSpace(query)))
	at := indexRunes(lower, needle)
	if at < 0 || len(needle) == 0 || len(lower) != len(runes) {
		if len(runes) > 2*radius {
			return string(runes[:2*radius]) + "…"
		}
		return text
	}

	start := max(at-radius, 0)
	end := min(at+len(needle)+radius, len(runes))
	var b strings.Builder
	if start > 0 {
		b.WriteString("…")
	}
	b.WriteString(string(runes[start:at]))
	b.WriteString("<mark>")
	b.WriteString(string(runes[at : at+len(needle)]))
	b.WriteString("</mark>")
	b.WriteString(string(runes[at+len(needle) : end]))
	if end < len(runes) {
		b.WriteString("…")
	}
	return b.String()
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
