package table

import (
	"beskar/editor/internal/doc"
)

// ToggleHeaderRow flips the first row between header and plain cells. The
// corner cell stays a header while the header column is on.
func (c *Commands) ToggleHeaderRow(tr *doc.Transaction) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || ctx.Map.Width == 0 || ctx.Map.Height == 0 || !c.shaped(ctx, "toggle header row") {
		return tr
	}
	first := firstDataColumn(ctx)
	h := headerState(ctx, first)
	var slots [][2]int
	for col := first; col < ctx.Map.Width; col++ {
		if col == first && h.col && h.colSampled {
			continue
		}
		slots = append(slots, [2]int{0, col})
	}
	return c.retype(tr, ctx, "toggle header row", slots, !h.row)
}

// ToggleHeaderColumn flips the first column between header and plain
// cells. The corner cell stays a header while the header row is on.
func (c *Commands) ToggleHeaderColumn(tr *doc.Transaction) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || ctx.Map.Width == 0 || ctx.Map.Height == 0 || !c.shaped(ctx, "toggle header column") {
		return tr
	}
	first := firstDataColumn(ctx)
	h := headerState(ctx, first)
	var slots [][2]int
	for row := 0; row < ctx.Map.Height; row++ {
		if row == 0 && h.row && h.rowSampled {
			continue
		}
		slots = append(slots, [2]int{row, first})
	}
	return c.retype(tr, ctx, "toggle header column", slots, !h.col)
}

// headers is the header state of a table. The sampled flags are set when
// the state was read from a cell other than the corner.
type headers struct {
	row, col               bool
	rowSampled, colSampled bool
}

// headerState samples (0, first+1) for the header row and (1, first) for
// the header column so the shared corner does not decide either. A table
// too small to have such a cell falls back to the corner.
func headerState(ctx *Context, first int) headers {
	h := headers{rowSampled: ctx.Map.Width > first+1, colSampled: ctx.Map.Height > 1}
	rowSample, colSample := first, 0
	if h.rowSampled {
		rowSample = first + 1
	}
	if h.colSampled {
		colSample = 1
	}
	row, _ := ctx.CellAt(0, rowSample)
	col, _ := ctx.CellAt(colSample, first)
	h.row = row != nil && row.Type == doc.KindTableHeader
	h.col = col != nil && col.Type == doc.KindTableHeader
	return h
}

// firstDataColumn is 1 when the table leads with a row-number column,
// otherwise 0.
func firstDataColumn(ctx *Context) int {
	if !ctx.Table.Attrs.Bool(AttrShowRowNumbers) || ctx.Map.Width < 2 {
		return 0
	}
	if cell, _ := ctx.CellAt(0, 0); !isNumberCell(cell) {
		return 0
	}
	return 1
}

func (c *Commands) retype(tr *doc.Transaction, ctx *Context, op string, slots [][2]int, header bool) *doc.Transaction {
	kind := doc.KindTableCell
	if header {
		kind = doc.KindTableHeader
	}
	cp, sel := tr.Checkpoint(), tr.Selection
	seen := make(map[int]bool)
	for _, slot := range slots {
		cell, pos := ctx.CellAt(slot[0], slot[1])
		if cell == nil || seen[pos] || cell.Type == kind {
			continue
		}
		seen[pos] = true
		if err := tr.SetNodeMarkup(pos, kind, cell.Attrs); err != nil {
			c.rollback(tr, cp, sel)
			c.logger.Printf("table: %s: %v", op, err)
			return tr
		}
	}
	return tr
}
