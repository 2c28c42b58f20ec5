package table

import (
	"sort"

	"golang.org/x/text/collate"

	"beskar/editor/internal/doc"
)

// SortByColumn reorders the data rows by the text of column col using the
// configured locale. A first row made entirely of header cells stays on
// top. Tables with merged cells are left alone, and so is a sort by the
// row-number column.
func (c *Commands) SortByColumn(tr *doc.Transaction, col int, ascending bool) *doc.Transaction {
	ctx, ok := Find(tr)
	if !ok || col < 0 || col >= ctx.Map.Width || col < firstDataColumn(ctx) {
		return tr
	}
	if ctx.Map.HasSpans() || !ctx.Map.Rectangular() {
		c.logger.Printf("table: sort by column %d: %v", col, errSpansMoves)
		return tr
	}

	rows := ctx.Table.Content
	first := 0
	if headerRow(rows[0]) {
		first = 1
	}
	body := make([]*doc.Node, len(rows)-first)
	copy(body, rows[first:])
	keys := make(map[*doc.Node]string, len(body))
	for _, row := range body {
		keys[row] = row.Child(col).TextContent()
	}

	// collators keep per-call buffers
	cl := collate.New(c.locale)
	sort.SliceStable(body, func(i, j int) bool {
		cmp := cl.CompareString(keys[body[i]], keys[body[j]])
		if ascending {
			return cmp < 0
		}
		return cmp > 0
	})

	changed := false
	for i, row := range body {
		if row != rows[first+i] {
			changed = true
			break
		}
	}
	if !changed {
		return tr
	}
	sorted := append(append([]*doc.Node{}, rows[:first]...), body...)
	if ctx.Table.Attrs.Bool(AttrShowRowNumbers) {
		sorted = renumber(sorted)
	}

	rect, hasCursor := ctx.SelectedRect(*tr.Selection)
	cp, sel := tr.Checkpoint(), tr.Selection
	if err := tr.ReplaceWith(ctx.Pos, ctx.Pos+ctx.Table.Size(), ctx.Table.Copy(sorted)); err != nil {
		c.rollback(tr, cp, sel)
		c.logger.Printf("table: sort by column %d: %v", col, err)
		return tr
	}
	if hasCursor {
		restoreCursor(tr, ctx.Pos, rect.Top, rect.Left)
	}
	return tr
}

// headerRow reports whether every cell of row, row-number cells aside, is
// a header.
func headerRow(row *doc.Node) bool {
	found := false
	for _, cell := range row.Content {
		if isNumberCell(cell) {
			continue
		}
		if cell.Type != doc.KindTableHeader {
			return false
		}
		found = true
	}
	return found
}
