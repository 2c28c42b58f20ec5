package table

import (
	"strconv"

	"beskar/editor/internal/doc"
)

const (
	// AttrShowRowNumbers marks a table carrying a leading row-number column.
	AttrShowRowNumbers = "showRowNumbers"
	// AttrRowNumber marks a synthesized row-number cell.
	AttrRowNumber = "rowNumber"
)

// ToggleRowNumbers adds or removes the leading row-number column. The
// table is rebuilt as a whole since every column index shifts.
func (c *Commands) ToggleRowNumbers(tr *doc.Transaction) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || ctx.Table.ChildCount() == 0 {
		return tr
	}
	on := ctx.Table.Attrs.Bool(AttrShowRowNumbers)
	rect, hasCursor := ctx.SelectedRect(*tr.Selection)

	rows := make([]*doc.Node, ctx.Table.ChildCount())
	for i, row := range ctx.Table.Content {
		if on {
			rows[i] = withoutNumberCell(row)
		} else {
			rows[i] = row.Copy(append([]*doc.Node{numberCell(i)}, row.Content...))
		}
	}
	attrs := ctx.Table.Attrs.With(AttrShowRowNumbers, !on)
	if on {
		attrs = ctx.Table.Attrs.Without(AttrShowRowNumbers)
	}
	rebuilt := ctx.Table.Copy(rows).WithAttrs(attrs)

	cp, sel := tr.Checkpoint(), tr.Selection
	if err := tr.ReplaceWith(ctx.Pos, ctx.Pos+ctx.Table.Size(), rebuilt); err != nil {
		c.rollback(tr, cp, sel)
		c.logger.Printf("table: toggle row numbers: %v", err)
		return tr
	}
	if hasCursor {
		col := rect.Left + 1
		if on {
			col = max(rect.Left-1, 0)
		}
		restoreCursor(tr, ctx.Pos, rect.Top, col)
	}
	return tr
}

func numberCell(i int) *doc.Node {
	return doc.New(doc.KindTableCell, doc.Attrs{AttrRowNumber: true}, doc.Paragraph(strconv.Itoa(i+1)))
}

func isNumberCell(n *doc.Node) bool {
	return n != nil && n.Type.IsCell() && n.Attrs.Bool(AttrRowNumber)
}

// numberCellIndex returns the index of the row-number cell in row, or -1.
func numberCellIndex(row *doc.Node) int {
	for i, cell := range row.Content {
		if isNumberCell(cell) {
			return i
		}
	}
	return -1
}

func withoutNumberCell(row *doc.Node) *doc.Node {
	i := numberCellIndex(row)
	if i < 0 {
		return row
	}
	content := make([]*doc.Node, 0, row.ChildCount()-1)
	content = append(content, row.Content[:i]...)
	content = append(content, row.Content[i+1:]...)
	return row.Copy(content)
}

// renumber rewrites the labels of row-number cells to match row order.
func renumber(rows []*doc.Node) []*doc.Node {
	out := make([]*doc.Node, len(rows))
	for i, row := range rows {
		out[i] = row
		if at := numberCellIndex(row); at >= 0 {
			out[i] = row.ReplaceChild(at, numberCell(i).WithAttrs(row.Child(at).Attrs))
		}
	}
	return out
}

func restoreCursor(tr *doc.Transaction, tablePos, row, col int) {
	if sel, ok := CursorIn(tr.Doc, tablePos, row, col); ok {
		tr.SetSelection(sel)
	}
}
