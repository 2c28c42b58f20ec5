package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"beskar/editor/internal/auth"
	"beskar/editor/internal/blockid"
	"beskar/editor/internal/cache"
	"beskar/editor/internal/clipboard"
	"beskar/editor/internal/config"
	"beskar/editor/internal/doc"
	"beskar/editor/internal/dragdrop"
	"beskar/editor/internal/editor"
	"beskar/editor/internal/export"
	"beskar/editor/internal/history"
	"beskar/editor/internal/rbac"
	"beskar/editor/internal/search"
	"beskar/editor/internal/store"
	"beskar/editor/internal/table"
)

const defaultHistoryLimit = 50

type Session struct {
	UserID   string
	UserName string
	Role     rbac.Role
}

type CreateDocumentInput struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

type MoveBlockInput struct {
	BlockID       string `json:"blockId"`
	TargetBlockID string `json:"targetBlockId"`
	Placement     string `json:"placement"`
	BaseVersion   int    `json:"baseVersion"`
}

type PasteInput struct {
	AfterBlockID string `json:"afterBlockId"`
	HTML         string `json:"html"`
	BaseVersion  int    `json:"baseVersion"`
}

type TableCommandInput struct {
	Command     string `json:"command"`
	Row         int    `json:"row"`
	Col         int    `json:"col"`
	Ascending   bool   `json:"ascending"`
	Color       string `json:"color"`
	BaseVersion int    `json:"baseVersion"`
}

type RepairInput struct {
	BaseVersion int `json:"baseVersion"`
}

type documentStore interface {
	ListDocuments(context.Context) ([]store.DocumentSummary, error)
	GetDocument(context.Context, string) (store.Document, error)
	InsertDocument(context.Context, store.Document, []store.Block) (store.Document, error)
	UpdateDocument(context.Context, store.Document, int, []store.Block) (store.Document, error)
	DeleteDocument(context.Context, string) error
	ListBlocks(context.Context, string) ([]store.Block, error)
	Ping(ctx context.Context) error
}

type snapshotCache interface {
	Put(context.Context, store.Document) error
	Get(context.Context, string) (store.Document, error)
	Invalidate(context.Context, string) error
}

type historyService interface {
	Commit(string, history.Snapshot, string, string) (history.CommitInfo, error)
	History(string, int) ([]history.CommitInfo, error)
	Remove(string) error
}

type searchService interface {
	Search(search.Query) search.Response
	IndexDocument(string, []store.Block, []store.Block)
	DeleteDocument([]store.Block)
}

type Service struct {
	cfg      config.Config
	store    documentStore
	cache    snapshotCache
	history  historyService
	search   searchService
	exporter *export.Service
	ids      *blockid.Manager
	tables   *table.Commands
	logger   *log.Logger
	newID    func() string
}

type Option func(*Service)

// WithCache enables the snapshot cache. A nil cache is ignored.
func WithCache(c *cache.RedisCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithHistory enables git history. A nil service is ignored.
func WithHistory(h *history.Service) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

func WithSearch(svc *search.Service) Option {
	return func(s *Service) {
		if svc != nil {
			s.search = svc
		}
	}
}

func New(cfg config.Config, documents *store.SQLStore, opts ...Option) *Service {
	s := newService(cfg, documents)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newService(cfg config.Config, documents documentStore) *Service {
	logger := log.Default()
	return &Service{
		cfg:      cfg,
		store:    documents,
		exporter: export.NewService(),
		ids:      blockid.New(blockid.WithLogger(logger)),
		tables:   table.NewCommands(table.WithLocale(cfg.SortLocale), table.WithLogger(logger)),
		logger:   logger,
		newID:    uuid.NewString,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:   claims.Sub,
		UserName: claims.Author(),
		Role:     rbac.Normalize(claims.Role),
	}, nil
}

func (s *Service) Can(role rbac.Role, action rbac.Action) bool {
	return rbac.Can(role, action)
}

func (s *Service) ListDocuments(ctx context.Context) ([]map[string]any, error) {
	items, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, map[string]any{
			"id":        item.ID,
			"title":     item.Title,
			"version":   item.Version,
			"updatedAt": item.UpdatedAt,
		})
	}
	return out, nil
}

// GetDocument reads through the snapshot cache.
func (s *Service) GetDocument(ctx context.Context, documentID string) (map[string]any, error) {
	item, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return documentPayload(item), nil
}

func (s *Service) loadDocument(ctx context.Context, documentID string) (store.Document, error) {
	if s.cache != nil {
		item, err := s.cache.Get(ctx, documentID)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Printf("cache: get %s: %v", documentID, err)
		}
	}
	item, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, item); err != nil {
			s.logger.Printf("cache: put %s: %v", documentID, err)
		}
	}
	return item, nil
}

func (s *Service) CreateDocument(ctx context.Context, session Session, input CreateDocumentInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "Untitled"
	}
	root := doc.New(doc.KindDoc, nil, doc.New(doc.KindParagraph, nil))
	if len(input.Content) > 0 && string(input.Content) != "null" {
		parsed, err := doc.Parse(input.Content)
		if err != nil {
			return nil, validationError("content is not a valid document", map[string]any{"reason": err.Error()})
		}
		if parsed.Type != doc.KindDoc {
			return nil, validationError("content must be a doc node", nil)
		}
		fixed, err := table.Fix(parsed)
		if err != nil {
			return nil, validationError("content has a table that cannot be repaired", map[string]any{"reason": err.Error()})
		}
		root = fixed.Doc
	}

	ed := s.newEditor(root)
	ed.Mount()
	content, blocks, err := s.snapshot("", ed.Doc())
	if err != nil {
		return nil, err
	}
	item := store.Document{
		ID:        s.newID(),
		Title:     title,
		Content:   content,
		UpdatedBy: session.UserName,
	}
	for i := range blocks {
		blocks[i].DocumentID = item.ID
	}
	saved, err := s.store.InsertDocument(ctx, item, blocks)
	if err != nil {
		return nil, err
	}
	s.afterSave(ctx, saved, nil, blocks, session.UserName, "Create document")
	return documentPayload(saved), nil
}

// RepairDocument runs identity repair over a stored document. A document
// that is already consistent is returned without a new version.
func (s *Service) RepairDocument(ctx context.Context, session Session, documentID string, input RepairInput) (map[string]any, error) {
	repaired := 0
	item, err := s.edit(ctx, session, documentID, input.BaseVersion, "Repair block identifiers", false, func(ed *editor.Editor) error {
		tr := ed.Transaction()
		repaired = s.ids.Repair(tr)
		if repaired == 0 {
			return nil
		}
		return ed.Dispatch(tr)
	})
	if err != nil {
		return nil, err
	}
	payload := documentPayload(item)
	payload["repaired"] = repaired
	return payload, nil
}

// MoveBlock moves one top-level block next to another, planned the same
// way as a drop.
func (s *Service) MoveBlock(ctx context.Context, session Session, documentID string, input MoveBlockInput) (map[string]any, error) {
	if input.BlockID == "" || input.TargetBlockID == "" {
		return nil, validationError("blockId and targetBlockId are required", nil)
	}
	placement, err := dragdrop.ParsePlacement(input.Placement)
	if err != nil {
		return nil, validationError(err.Error(), nil)
	}
	item, err := s.edit(ctx, session, documentID, input.BaseVersion, "Move block "+input.BlockID, true, func(ed *editor.Editor) error {
		move, err := dragdrop.PlanMove(ed.Doc(), input.BlockID, nil, input.TargetBlockID, placement)
		if err != nil {
			return err
		}
		tr, err := dragdrop.MoveTransaction(ed.Doc(), move)
		if err != nil {
			return err
		}
		return ed.Dispatch(tr)
	})
	if err != nil {
		return nil, err
	}
	return documentPayload(item), nil
}

// PasteHTML inserts clipboard HTML after afterBlockId, or at the end of the
// document. Pasted blocks get fresh identifiers.
func (s *Service) PasteHTML(ctx context.Context, session Session, documentID string, input PasteInput) (map[string]any, error) {
	nodes, err := clipboard.ParseHTML(input.HTML)
	if err != nil {
		return nil, validationError("html could not be parsed", map[string]any{"reason": err.Error()})
	}
	if len(nodes) == 0 {
		return nil, noopError("html holds no content")
	}
	item, err := s.edit(ctx, session, documentID, input.BaseVersion, "Paste content", true, func(ed *editor.Editor) error {
		pos := ed.Doc().ContentSize()
		if input.AfterBlockID != "" {
			b, ok := dragdrop.FindBlock(ed.Doc(), input.AfterBlockID)
			if !ok {
				return fmt.Errorf("paste after %q: %w", input.AfterBlockID, dragdrop.ErrNoTarget)
			}
			pos = b.Pos + b.Node.Size()
		}
		return ed.PasteAt(pos, nodes)
	})
	if err != nil {
		return nil, err
	}
	return documentPayload(item), nil
}

// RunTableCommand runs a named table command with the cursor in the cell at
// (row, col) of the table block blockID.
func (s *Service) RunTableCommand(ctx context.Context, session Session, documentID, blockID string, input TableCommandInput) (map[string]any, error) {
	cmd, err := s.tables.Lookup(input.Command, table.Args{
		Row:       input.Row,
		Col:       input.Col,
		Ascending: input.Ascending,
		Color:     input.Color,
	})
	if err != nil {
		return nil, err
	}
	item, err := s.edit(ctx, session, documentID, input.BaseVersion, "Table "+input.Command, true, func(ed *editor.Editor) error {
		b, ok := dragdrop.FindBlock(ed.Doc(), blockID)
		if !ok {
			return fmt.Errorf("table %q: %w", blockID, dragdrop.ErrNoTarget)
		}
		if b.Node.Type != doc.KindTable {
			return validationError("block is not a table", map[string]any{"type": b.Node.TypeName()})
		}
		sel, ok := table.CursorIn(ed.Doc(), b.Pos, input.Row, input.Col)
		if !ok {
			return validationError("cell is outside the table", map[string]any{"row": input.Row, "col": input.Col})
		}
		ed.SetSelection(sel)
		_, err := ed.Exec(cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return documentPayload(item), nil
}

func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	blocks, err := s.store.ListBlocks(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, documentID); err != nil {
			s.logger.Printf("cache: invalidate %s: %v", documentID, err)
		}
	}
	if s.search != nil {
		s.search.DeleteDocument(blocks)
	}
	if s.history != nil {
		if err := s.history.Remove(documentID); err != nil {
			s.logger.Printf("history: remove %s: %v", documentID, err)
		}
	}
	return nil
}

func (s *Service) History(ctx context.Context, documentID string, limit int) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	commits := []history.CommitInfo{}
	if s.history != nil {
		items, err := s.history.History(documentID, limit)
		if err != nil {
			return nil, err
		}
		commits = items
	}
	return map[string]any{
		"documentId": documentID,
		"commits":    commits,
	}, nil
}

func (s *Service) ExportDocument(ctx context.Context, documentID string, format export.Format) (*export.Result, error) {
	item, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	root, err := doc.Parse(item.Content)
	if err != nil {
		return nil, fmt.Errorf("parse stored document %s: %w", documentID, err)
	}
	return s.exporter.Export(ctx, export.Document{
		Title:     item.Title,
		Author:    item.UpdatedBy,
		Version:   item.Version,
		UpdatedAt: item.UpdatedAt,
		Root:      root,
	}, format)
}

func (s *Service) Search(query string, limit, offset int) search.Response {
	q := search.Query{Text: strings.TrimSpace(query), Limit: limit, Offset: offset}
	if q.Text == "" || s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// edit loads a document into an editor, applies fn and saves the result
// as a new version. When fn leaves the document as it was, the stored
// document is returned, or a NOOP error if mustChange is set.
func (s *Service) edit(ctx context.Context, session Session, documentID string, baseVersion int, message string, mustChange bool, fn func(ed *editor.Editor) error) (store.Document, error) {
	current, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if baseVersion != current.Version {
		return store.Document{}, versionConflict(baseVersion, current.Version)
	}
	stored, err := doc.Parse(current.Content)
	if err != nil {
		return store.Document{}, fmt.Errorf("parse stored document %s: %w", documentID, err)
	}

	ed := s.newEditor(stored)
	if err := fn(ed); err != nil {
		return store.Document{}, err
	}
	if ed.Doc() == stored {
		if mustChange {
			return store.Document{}, noopError("document unchanged")
		}
		return current, nil
	}

	content, blocks, err := s.snapshot(documentID, ed.Doc())
	if err != nil {
		return store.Document{}, err
	}
	previous, err := s.store.ListBlocks(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	saved, err := s.store.UpdateDocument(ctx, store.Document{
		ID:        documentID,
		Title:     current.Title,
		Content:   content,
		UpdatedBy: session.UserName,
	}, baseVersion, blocks)
	if err != nil {
		return store.Document{}, err
	}
	s.afterSave(ctx, saved, previous, blocks, session.UserName, message)
	return saved, nil
}

// newEditor opens root with the identity and shape-repair observers. The
// editor is not mounted; the first dispatched change repairs identifiers.
func (s *Service) newEditor(root *doc.Node) *editor.Editor {
	return editor.New(root,
		editor.WithPlugins(s.ids, table.NewShapeRepair(nil, s.logger)),
		editor.WithLogger(s.logger),
	)
}

// snapshot serializes root after checking its identifiers.
func (s *Service) snapshot(documentID string, root *doc.Node) (json.RawMessage, []store.Block, error) {
	if err := s.ids.Verify(root); err != nil {
		return nil, nil, fmt.Errorf("save document %s: %w", documentID, err)
	}
	if err := root.Check(); err != nil {
		return nil, nil, fmt.Errorf("save document %s: %w", documentID, err)
	}
	content, err := json.Marshal(root)
	if err != nil {
		return nil, nil, fmt.Errorf("encode document %s: %w", documentID, err)
	}
	return content, search.Blocks(documentID, root), nil
}

func (s *Service) afterSave(ctx context.Context, saved store.Document, previous, current []store.Block, author, message string) {
	if s.cache != nil {
		if err := s.cache.Put(ctx, saved); err != nil {
			s.logger.Printf("cache: put %s: %v", saved.ID, err)
		}
	}
	if s.search != nil {
		s.search.IndexDocument(saved.Title, previous, current)
	}
	if s.history == nil {
		return
	}
	if author == "" {
		author = "beskar"
	}
	_, err := s.history.Commit(saved.ID, history.Snapshot{
		Title:   saved.Title,
		Version: saved.Version,
		Doc:     saved.Content,
	}, author, message)
	if err != nil && !errors.Is(err, history.ErrUnchanged) {
		s.logger.Printf("history: commit %s v%d: %v", saved.ID, saved.Version, err)
	}
}

func documentPayload(item store.Document) map[string]any {
	content := item.Content
	if len(content) == 0 {
		content = json.RawMessage(`null`)
	}
	return map[string]any{
		"id":        item.ID,
		"title":     item.Title,
		"version":   item.Version,
		"updatedBy": item.UpdatedBy,
		"updatedAt": item.UpdatedAt,
		"content":   content,
	}
}
