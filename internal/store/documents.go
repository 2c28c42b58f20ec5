package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLStore keeps documents in Postgres or SQLite. Queries stay within the
// SQL both understand.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, version, updated_at
		FROM documents
		ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]DocumentSummary, 0)
	for rows.Next() {
		var item DocumentSummary
		if err := rows.Scan(&item.ID, &item.Title, &item.Version, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *SQLStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	var content string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, version, updated_by, created_at, updated_at
		FROM documents
		WHERE id=$1
	`, documentID).Scan(&item.ID, &item.Title, &content, &item.Version, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("get document %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document %s: %w", documentID, err)
	}
	item.Content = []byte(content)
	return item, nil
}

// InsertDocument stores a new document at version 1 together with its
// blocks.
func (s *SQLStore) InsertDocument(ctx context.Context, item Document, blocks []Block) (Document, error) {
	now := s.now()
	item.Version = 1
	item.CreatedAt, item.UpdatedAt = now, now
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, title, content, version, updated_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ID, item.Title, string(item.Content), item.Version, item.UpdatedBy, now, now); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		return replaceBlocks(ctx, tx, item.ID, blocks)
	})
	if err != nil {
		return Document{}, err
	}
	return item, nil
}

// UpdateDocument replaces the content of a document whose stored version
// is baseVersion and bumps the version. A stale baseVersion yields
// ErrVersionConflict.
func (s *SQLStore) UpdateDocument(ctx context.Context, item Document, baseVersion int, blocks []Block) (Document, error) {
	now := s.now()
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET title=$3, content=$4, version=version+1, updated_by=$5, updated_at=$6
			WHERE id=$1 AND version=$2
		`, item.ID, baseVersion, item.Title, string(item.Content), item.UpdatedBy, now)
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if n == 0 {
			var count int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE id=$1`, item.ID).Scan(&count); err != nil {
				return fmt.Errorf("update document: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("update document %s: %w", item.ID, ErrNotFound)
			}
			return fmt.Errorf("update document %s at version %d: %w", item.ID, baseVersion, ErrVersionConflict)
		}
		return replaceBlocks(ctx, tx, item.ID, blocks)
	})
	if err != nil {
		return Document{}, err
	}
	return s.GetDocument(ctx, item.ID)
}

func (s *SQLStore) DeleteDocument(ctx context.Context, documentID string) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM document_blocks WHERE document_id=$1`, documentID); err != nil {
			return fmt.Errorf("delete blocks: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID)
		if err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("delete document %s: %w", documentID, ErrNotFound)
		}
		return nil
	})
}

func replaceBlocks(ctx context.Context, tx *sql.Tx, documentID string, blocks []Block) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_blocks WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("clear blocks: %w", err)
	}
	for _, b := range blocks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_blocks (document_id, block_id, block_type, position, text)
			VALUES ($1, $2, $3, $4, $5)
		`, documentID, b.BlockID, b.Type, b.Position, b.Text); err != nil {
			return fmt.Errorf("insert block %s: %w", b.BlockID, err)
		}
	}
	return nil
}

func (s *SQLStore) ListBlocks(ctx context.Context, documentID string) ([]Block, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, block_id, block_type, position, text
		FROM document_blocks
		WHERE document_id=$1
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	items := make([]Block, 0)
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.DocumentID, &b.BlockID, &b.Type, &b.Position, &b.Text); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return items, nil
}

// SearchBlocks returns blocks whose text contains query, ignoring case,
// and the total number of matches.
func (s *SQLStore) SearchBlocks(ctx context.Context, query string, limit, offset int) ([]BlockHit, int, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"
	var total int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM document_blocks WHERE LOWER(text) LIKE $1 ESCAPE '\'
	`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blocks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.document_id, b.block_id, b.block_type, b.position, b.text, d.title
		FROM document_blocks b
		JOIN documents d ON d.id = b.document_id
		WHERE LOWER(b.text) LIKE $1 ESCAPE '\'
		ORDER BY d.updated_at DESC, b.position
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search blocks: %w", err)
	}
	defer rows.Close()

	hits := make([]BlockHit, 0)
	for rows.Next() {
		var h BlockHit
		if err := rows.Scan(&h.DocumentID, &h.BlockID, &h.Type, &h.Position, &h.Text, &h.Title); err != nil {
			return nil, 0, fmt.Errorf("scan block hit: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate block hits: %w", err)
	}
	return hits, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
