// Package table implements structural editing of tables: row and column
// insertion, deletion and moves, header toggles, row numbers, sorting and
// cell styling. Every command takes a transaction and returns it, unchanged
// when no table is found around the selection.
package table

import (
	"errors"
	"log"

	"golang.org/x/text/language"

	"beskar/editor/internal/blockid"
	"beskar/editor/internal/doc"
	"beskar/editor/internal/tablemap"
)

var (
	errTableGone  = errors.New("table no longer at its position")
	errMalformed  = errors.New("table is not rectangular")
	errSpansMoves = errors.New("moves are not supported on tables with merged cells")
)

// Commands runs table commands. It is safe for concurrent use.
type Commands struct {
	logger *log.Logger
	locale language.Tag
}

// Option configures Commands.
type Option func(*Commands)

// WithLogger sets the logger used for rejected commands.
func WithLogger(logger *log.Logger) Option {
	return func(c *Commands) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLocale sets the BCP 47 locale used to compare cells when sorting.
// Unparseable tags fall back to English.
func WithLocale(tag string) Option {
	return func(c *Commands) {
		if parsed, err := language.Parse(tag); err == nil {
			c.locale = parsed
		}
	}
}

// NewCommands builds a command set.
func NewCommands(opts ...Option) *Commands {
	c := &Commands{logger: log.Default(), locale: language.English}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// structural runs fn against the table around the selection. The table
// must be rectangular before and after; otherwise every step fn added is
// rolled back and the violation logged.
func (c *Commands) structural(tr *doc.Transaction, op string, fn func(ctx *Context) error) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok {
		return tr
	}
	if !ctx.Map.Rectangular() {
		c.logger.Printf("table: %s rejected: %v", op, errMalformed)
		return tr
	}
	cp, sel := tr.Checkpoint(), tr.Selection
	if err := fn(ctx); err != nil {
		c.rollback(tr, cp, sel)
		c.logger.Printf("table: %s rolled back: %v", op, err)
		return tr
	}
	if err := verifyAt(tr.Doc, ctx.Pos); err != nil {
		c.rollback(tr, cp, sel)
		c.logger.Printf("table: %s rolled back: %v", op, err)
	}
	return tr
}

// shaped reports whether the table can be edited cell by cell. Ragged
// tables are left to shape repair.
func (c *Commands) shaped(ctx *Context, op string) bool {
	if ctx.Map.Rectangular() {
		return true
	}
	c.logger.Printf("table: %s rejected: %v", op, errMalformed)
	return false
}

func (c *Commands) rollback(tr *doc.Transaction, cp int, sel *doc.Selection) {
	tr.Rollback(cp)
	tr.Selection = sel
}

// verifyAt checks the table at pos, if one is still there.
func verifyAt(root *doc.Node, pos int) error {
	node := root.NodeAt(pos)
	if node == nil || node.Type != doc.KindTable {
		return nil
	}
	if m := tablemap.Compute(node); !m.Rectangular() {
		return errMalformed
	}
	return nil
}

// AddColumnBefore inserts a column left of the selection.
func (c *Commands) AddColumnBefore(tr *doc.Transaction) *doc.Transaction {
	return c.structural(tr, "add column", func(ctx *Context) error {
		rect, ok := ctx.SelectedRect(*tr.Selection)
		if !ok {
			return nil
		}
		return addColumn(tr, ctx, rect.Left)
	})
}

// AddColumnAfter inserts a column right of the selection.
func (c *Commands) AddColumnAfter(tr *doc.Transaction) *doc.Transaction {
	return c.structural(tr, "add column", func(ctx *Context) error {
		rect, ok := ctx.SelectedRect(*tr.Selection)
		if !ok {
			return nil
		}
		return addColumn(tr, ctx, rect.Right)
	})
}

// DeleteColumn removes the selected columns. Removing every column
// deletes the table.
func (c *Commands) DeleteColumn(tr *doc.Transaction) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok {
		return tr
	}
	rect, ok := ctx.SelectedRect(*tr.Selection)
	if !ok {
		return tr
	}
	if rect.Left == 0 && rect.Right == ctx.Map.Width {
		return c.DeleteTable(tr)
	}
	return c.structural(tr, "delete column", func(ctx *Context) error {
		for col := rect.Right - 1; col >= rect.Left; col-- {
			if err := removeColumn(tr, ctx, col); err != nil {
				return err
			}
			if !ctx.refresh(tr) {
				return errTableGone
			}
		}
		return nil
	})
}

// AddRowBefore inserts a row above the selection.
func (c *Commands) AddRowBefore(tr *doc.Transaction) *doc.Transaction {
	return c.structural(tr, "add row", func(ctx *Context) error {
		rect, ok := ctx.SelectedRect(*tr.Selection)
		if !ok {
			return nil
		}
		return addRow(tr, ctx, rect.Top)
	})
}

// AddRowAfter inserts a row below the selection.
func (c *Commands) AddRowAfter(tr *doc.Transaction) *doc.Transaction {
	return c.structural(tr, "add row", func(ctx *Context) error {
		rect, ok := ctx.SelectedRect(*tr.Selection)
		if !ok {
			return nil
		}
		return addRow(tr, ctx, rect.Bottom)
	})
}

// DeleteRow removes the selected rows. Removing every row deletes the
// table.
func (c *Commands) DeleteRow(tr *doc.Transaction) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok {
		return tr
	}
	rect, ok := ctx.SelectedRect(*tr.Selection)
	if !ok {
		return tr
	}
	if rect.Top == 0 && rect.Bottom == ctx.Map.Height {
		return c.DeleteTable(tr)
	}
	return c.structural(tr, "delete row", func(ctx *Context) error {
		for row := rect.Bottom - 1; row >= rect.Top; row-- {
			if err := removeRow(tr, ctx, row); err != nil {
				return err
			}
			if !ctx.refresh(tr) {
				return errTableGone
			}
		}
		return nil
	})
}

// DeleteTable removes the table around the selection. A document left
// without blocks gets an empty paragraph.
func (c *Commands) DeleteTable(tr *doc.Transaction) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok {
		return tr
	}
	cp, sel := tr.Checkpoint(), tr.Selection
	if err := tr.Delete(ctx.Pos, ctx.Pos+ctx.Table.Size()); err != nil {
		c.rollback(tr, cp, sel)
		c.logger.Printf("table: delete table: %v", err)
		return tr
	}
	if tr.Doc.ChildCount() == 0 {
		if err := tr.Insert(0, doc.Paragraph("")); err != nil {
			c.rollback(tr, cp, sel)
			c.logger.Printf("table: delete table: %v", err)
			return tr
		}
	}
	pos := min(ctx.Pos+1, tr.Doc.ContentSize())
	return tr.SetSelection(doc.TextSelection(pos, pos))
}

// CopyTable returns the table around pos with every block identifier
// removed, ready to be pasted as a fresh block.
func CopyTable(root *doc.Node, pos int) (*doc.Node, bool) {
	ctx, ok := FindAt(root, pos)
	if !ok {
		return nil, false
	}
	return blockid.Strip(ctx.Table), true
}

// ClearCells empties the content of the selected cells, keeping their
// attributes.
func (c *Commands) ClearCells(tr *doc.Transaction) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || !c.shaped(ctx, "clear cells") {
		return tr
	}
	cells := ctx.selectedCells(*tr.Selection)
	cp, sel := tr.Checkpoint(), tr.Selection
	for i := len(cells) - 1; i >= 0; i-- {
		pos := cells[i]
		cell := tr.Doc.NodeAt(pos)
		if cell == nil || !cell.Type.IsCell() {
			continue
		}
		cleared := cell.Copy([]*doc.Node{doc.Paragraph("")})
		if cleared.Equal(cell) {
			continue
		}
		if err := tr.ReplaceWith(pos, pos+cell.Size(), cleared); err != nil {
			c.rollback(tr, cp, sel)
			c.logger.Printf("table: clear cells: %v", err)
			return tr
		}
	}
	return tr
}

// DistributeColumns gives every column the same width, splitting the total
// of the widths set on the first row. Tables without explicit widths are
// left alone.
func (c *Commands) DistributeColumns(tr *doc.Transaction) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || ctx.Map.Width == 0 || ctx.Map.Height == 0 || !c.shaped(ctx, "distribute columns") {
		return tr
	}
	total := 0
	seen := make(map[int]bool)
	for col := 0; col < ctx.Map.Width; col++ {
		off := ctx.Map.CellAt(0, col)
		if seen[off] {
			continue
		}
		seen[off] = true
		for _, w := range ctx.Table.NodeAt(off).Attrs.Ints("colwidth") {
			total += w
		}
	}
	if total == 0 {
		return tr
	}
	each := total / ctx.Map.Width

	cp, sel := tr.Checkpoint(), tr.Selection
	seen = make(map[int]bool)
	for _, off := range ctx.Map.Cells {
		if seen[off] {
			continue
		}
		seen[off] = true
		cell := ctx.Table.NodeAt(off)
		widths := make([]int, tablemap.Colspan(cell))
		for i := range widths {
			widths[i] = each
		}
		if err := tr.SetNodeAttribute(ctx.Start+off, "colwidth", widths); err != nil {
			c.rollback(tr, cp, sel)
			c.logger.Printf("table: distribute columns: %v", err)
			return tr
		}
	}
	return tr
}

// SelectRow selects every cell of row.
func (c *Commands) SelectRow(tr *doc.Transaction, row int) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || row < 0 || row >= ctx.Map.Height {
		return tr
	}
	return selectRect(tr, ctx, tablemap.Rect{Left: 0, Top: row, Right: ctx.Map.Width, Bottom: row + 1})
}

// SelectColumn selects every cell of col.
func (c *Commands) SelectColumn(tr *doc.Transaction, col int) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || col < 0 || col >= ctx.Map.Width {
		return tr
	}
	return selectRect(tr, ctx, tablemap.Rect{Left: col, Top: 0, Right: col + 1, Bottom: ctx.Map.Height})
}

// SelectTable selects every cell of the table.
func (c *Commands) SelectTable(tr *doc.Transaction) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok {
		return tr
	}
	return selectRect(tr, ctx, tablemap.Rect{Right: ctx.Map.Width, Bottom: ctx.Map.Height})
}

func selectRect(tr *doc.Transaction, ctx *Context, rect tablemap.Rect) *doc.Transaction {
	cells := ctx.Map.CellsInRect(rect)
	if len(cells) == 0 {
		return tr
	}
	return tr.SetSelection(doc.CellSelection(ctx.Start+cells[0], ctx.Start+cells[len(cells)-1]))
}
