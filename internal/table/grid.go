package table

import (
	"beskar/editor/internal/doc"
	"beskar/editor/internal/tablemap"
)

// emptyCell builds a cell of kind holding one empty paragraph.
func emptyCell(kind doc.Kind) *doc.Node {
	return doc.New(kind, nil, doc.Paragraph(""))
}

func addColspan(attrs doc.Attrs, at, n int) doc.Attrs {
	out := attrs.With("colspan", tablemap.Colspan(&doc.Node{Attrs: attrs})+n)
	if widths := attrs.Ints("colwidth"); widths != nil {
		grown := make([]int, 0, len(widths)+n)
		grown = append(grown, widths[:min(at, len(widths))]...)
		for i := 0; i < n; i++ {
			grown = append(grown, 0)
		}
		grown = append(grown, widths[min(at, len(widths)):]...)
		out = out.With("colwidth", grown)
	}
	return out
}

func removeColspan(attrs doc.Attrs, at, n int) doc.Attrs {
	out := attrs.With("colspan", tablemap.Colspan(&doc.Node{Attrs: attrs})-n)
	if widths := attrs.Ints("colwidth"); widths != nil {
		shrunk := make([]int, 0, len(widths))
		shrunk = append(shrunk, widths[:min(at, len(widths))]...)
		shrunk = append(shrunk, widths[min(at+n, len(widths)):]...)
		allZero := true
		for _, w := range shrunk {
			if w > 0 {
				allZero = false
			}
		}
		if allZero {
			out = out.Without("colwidth")
		} else {
			out = out.With("colwidth", shrunk)
		}
	}
	return out
}

func columnIsHeader(c *Context, col int) bool {
	for row := 0; row < c.Map.Height; row++ {
		if c.Table.NodeAt(c.Map.CellAt(row, col)).Type != doc.KindTableHeader {
			return false
		}
	}
	return true
}

func rowIsHeader(c *Context, row int) bool {
	for col := 0; col < c.Map.Width; col++ {
		if c.Table.NodeAt(c.Map.CellAt(row, col)).Type != doc.KindTableHeader {
			return false
		}
	}
	return true
}

// addColumn inserts an empty column before grid column col. New cells copy
// the type of their neighbour unless that neighbour belongs to a header
// column at the table edge.
func addColumn(tr *doc.Transaction, c *Context, col int) error {
	m := c.Map
	ref, hasRef := 0, true
	if col > 0 {
		ref = -1
	}
	if m.Width > 0 && columnIsHeader(c, col+ref) {
		if col == 0 || col == m.Width {
			hasRef = false
		} else {
			ref = 0
		}
	}
	start := tr.Checkpoint()
	for row := 0; row < m.Height; row++ {
		index := row*m.Width + col
		if col > 0 && col < m.Width && m.Cells[index-1] == m.Cells[index] {
			pos := m.Cells[index]
			cell := c.Table.NodeAt(pos)
			left, _ := m.ColCount(pos)
			if err := tr.SetNodeMarkup(tr.MapSince(start, c.Start+pos, 1), doc.KindInvalid, addColspan(cell.Attrs, col-left, 1)); err != nil {
				return err
			}
			row += tablemap.Rowspan(cell) - 1
			continue
		}
		kind := doc.KindTableCell
		if hasRef {
			kind = c.Table.NodeAt(m.Cells[index+ref]).Type
		}
		pos := m.PositionAt(row, col, c.Table)
		if err := tr.Insert(tr.MapSince(start, c.Start+pos, 1), emptyCell(kind)); err != nil {
			return err
		}
	}
	return nil
}

// removeColumn deletes grid column col, shrinking cells that span it.
func removeColumn(tr *doc.Transaction, c *Context, col int) error {
	m := c.Map
	start := tr.Checkpoint()
	for row := 0; row < m.Height; {
		index := row*m.Width + col
		pos := m.Cells[index]
		cell := c.Table.NodeAt(pos)
		at := tr.MapSince(start, c.Start+pos, 1)
		if (col > 0 && m.Cells[index-1] == pos) || (col < m.Width-1 && m.Cells[index+1] == pos) {
			left, _ := m.ColCount(pos)
			if err := tr.SetNodeMarkup(at, doc.KindInvalid, removeColspan(cell.Attrs, col-left, 1)); err != nil {
				return err
			}
		} else if err := tr.Delete(at, at+cell.Size()); err != nil {
			return err
		}
		row += tablemap.Rowspan(cell)
	}
	return nil
}

// addRow inserts an empty row before grid row row. Cells spanning into the
// new row grow instead.
func addRow(tr *doc.Transaction, c *Context, row int) error {
	m := c.Map
	rowPos := c.Start
	for i := 0; i < row; i++ {
		rowPos += c.Table.Child(i).Size()
	}
	ref, hasRef := 0, true
	if row > 0 {
		ref = -1
	}
	if m.Height > 0 && rowIsHeader(c, row+ref) {
		if row == 0 || row == m.Height {
			hasRef = false
		} else {
			ref = 0
		}
	}

	var cells []*doc.Node
	for col, index := 0, m.Width*row; col < m.Width; col, index = col+1, index+1 {
		if row > 0 && row < m.Height && m.Cells[index] == m.Cells[index-m.Width] {
			pos := m.Cells[index]
			cell := c.Table.NodeAt(pos)
			if err := tr.SetNodeAttribute(c.Start+pos, "rowspan", tablemap.Rowspan(cell)+1); err != nil {
				return err
			}
			skip := tablemap.Colspan(cell) - 1
			col += skip
			index += skip
			continue
		}
		kind := doc.KindTableCell
		if hasRef {
			kind = c.Table.NodeAt(m.Cells[index+ref*m.Width]).Type
		}
		cells = append(cells, emptyCell(kind))
	}
	return tr.Insert(rowPos, doc.New(doc.KindTableRow, nil, cells...))
}

// removeRow deletes grid row row. Cells reaching in from above shrink;
// cells continuing below move down into the next row.
func removeRow(tr *doc.Transaction, c *Context, row int) error {
	m := c.Map
	rowPos := 0
	for i := 0; i < row; i++ {
		rowPos += c.Table.Child(i).Size()
	}
	nextRow := rowPos + c.Table.Child(row).Size()

	start := tr.Checkpoint()
	if err := tr.Delete(c.Start+rowPos, c.Start+nextRow); err != nil {
		return err
	}
	seen := make(map[int]bool)
	for col, index := 0, row*m.Width; col < m.Width; col, index = col+1, index+1 {
		pos := m.Cells[index]
		if seen[pos] {
			continue
		}
		seen[pos] = true
		cell := c.Table.NodeAt(pos)
		switch {
		case row > 0 && pos == m.Cells[index-m.Width]:
			at := tr.MapSince(start, c.Start+pos, 1)
			if err := tr.SetNodeAttribute(at, "rowspan", tablemap.Rowspan(cell)-1); err != nil {
				return err
			}
		case row+1 < m.Height && pos == m.Cells[index+m.Width]:
			moved := cell.WithAttrs(cell.Attrs.With("rowspan", tablemap.Rowspan(cell)-1))
			target := m.PositionAt(row+1, col, c.Table)
			if err := tr.Insert(tr.MapSince(start, c.Start+target, 1), moved); err != nil {
				return err
			}
		default:
			continue
		}
		skip := tablemap.Colspan(cell) - 1
		col += skip
		index += skip
	}
	return nil
}
