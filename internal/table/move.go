package table

import (
	"beskar/editor/internal/doc"
)

// MoveColumnLeft swaps column col with the column to its left. Each cell
// keeps its own type; content and attributes trade places. Moving the
// first column is a no-op, as is any move on a table with merged cells.
// The row-number column never moves.
func (c *Commands) MoveColumnLeft(tr *doc.Transaction, col int) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || col >= ctx.Map.Width || col-1 < firstDataColumn(ctx) {
		return tr
	}
	if ctx.Map.HasSpans() {
		c.logger.Printf("table: move column %d: %v", col, errSpansMoves)
		return tr
	}
	return c.structural(tr, "move column", func(ctx *Context) error {
		for row := ctx.Map.Height - 1; row >= 0; row-- {
			if !ctx.refresh(tr) {
				return errTableGone
			}
			if err := swapCells(tr, ctx, row, col-1, row, col); err != nil {
				return err
			}
		}
		return nil
	})
}

// MoveColumnRight swaps column col with the column to its right.
func (c *Commands) MoveColumnRight(tr *doc.Transaction, col int) *doc.Transaction {
	return c.MoveColumnLeft(tr, col+1)
}

// MoveRowUp swaps row with the row above it, cell by cell. Row-number
// labels stay where they are.
func (c *Commands) MoveRowUp(tr *doc.Transaction, row int) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || row <= 0 || row >= ctx.Map.Height {
		return tr
	}
	if ctx.Map.HasSpans() {
		c.logger.Printf("table: move row %d: %v", row, errSpansMoves)
		return tr
	}
	first := firstDataColumn(ctx)
	return c.structural(tr, "move row", func(ctx *Context) error {
		for col := ctx.Map.Width - 1; col >= first; col-- {
			if !ctx.refresh(tr) {
				return errTableGone
			}
			if err := swapCells(tr, ctx, row-1, col, row, col); err != nil {
				return err
			}
		}
		return nil
	})
}

// MoveRowDown swaps row with the row below it.
func (c *Commands) MoveRowDown(tr *doc.Transaction, row int) *doc.Transaction {
	return c.MoveRowUp(tr, row+1)
}

// swapCells exchanges the content and attributes of two cells, the first
// lying before the second in the document. The later cell is replaced
// first so the earlier position stays valid.
func swapCells(tr *doc.Transaction, ctx *Context, rowA, colA, rowB, colB int) error {
	a, aPos := ctx.CellAt(rowA, colA)
	b, bPos := ctx.CellAt(rowB, colB)
	if a == nil || b == nil {
		return errMalformed
	}
	if err := tr.ReplaceWith(bPos, bPos+b.Size(), a.WithType(b.Type)); err != nil {
		return err
	}
	return tr.ReplaceWith(aPos, aPos+a.Size(), b.WithType(a.Type))
}
