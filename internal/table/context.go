package table

import (
	"beskar/editor/internal/doc"
	"beskar/editor/internal/tablemap"
)

// Context is the table a command operates on.
type Context struct {
	Table *doc.Node
	// Pos is the position directly before the table, Start where its
	// content begins.
	Pos   int
	Start int
	Map   *tablemap.Map
}

// Find locates the innermost table around the selection of tr.
func Find(tr *doc.Transaction) (*Context, bool) {
	if tr.Selection == nil {
		return nil, false
	}
	return FindAt(tr.Doc, tr.Selection.Head)
}

// FindAt locates the innermost table around pos.
func FindAt(root *doc.Node, pos int) (*Context, bool) {
	rp, err := root.Resolve(pos)
	if err != nil {
		return nil, false
	}
	depth, ok := rp.FindAncestor(func(n *doc.Node) bool { return n.Type == doc.KindTable })
	if !ok {
		// pos may sit directly before the table
		if node := root.NodeAt(pos); node != nil && node.Type == doc.KindTable {
			return newContext(node, pos), true
		}
		return nil, false
	}
	return newContext(rp.Node(depth), rp.Before(depth)), true
}

func newContext(table *doc.Node, pos int) *Context {
	return &Context{Table: table, Pos: pos, Start: pos + 1, Map: tablemap.Compute(table)}
}

// refresh re-reads the table from the current document of tr.
func (c *Context) refresh(tr *doc.Transaction) bool {
	node := tr.Doc.NodeAt(c.Pos)
	if node == nil || node.Type != doc.KindTable {
		return false
	}
	c.Table = node
	c.Map = tablemap.Compute(node)
	return true
}

// CellAt returns the cell covering row, col and its absolute position. The
// cell is nil when the slot is not filled.
func (c *Context) CellAt(row, col int) (*doc.Node, int) {
	offset := c.Map.CellAt(row, col)
	if offset == 0 {
		return nil, 0
	}
	cell := c.Table.NodeAt(offset)
	if cell == nil || !cell.Type.IsCell() {
		return nil, 0
	}
	return cell, c.Start + offset
}

// SelectedRect returns the grid rectangle the selection covers: the
// rectangle between both ends of a cell selection, otherwise the cell
// holding the cursor.
func (c *Context) SelectedRect(sel doc.Selection) (tablemap.Rect, bool) {
	if sel.Cells {
		rect, err := c.Map.RectBetween(sel.Anchor-c.Start, sel.Head-c.Start)
		return rect, err == nil
	}
	cellPos, ok := c.cellAround(sel.Head)
	if !ok {
		return tablemap.Rect{}, false
	}
	rect, err := c.Map.FindCell(cellPos - c.Start)
	return rect, err == nil
}

func (c *Context) cellAround(pos int) (int, bool) {
	if pos < c.Start || pos > c.Start+c.Table.ContentSize() {
		return 0, false
	}
	local, err := c.Table.Resolve(pos - c.Start)
	if err != nil {
		return 0, false
	}
	depth, ok := local.FindAncestor(func(n *doc.Node) bool { return n.Type.IsCell() })
	if !ok {
		return 0, false
	}
	return c.Start + local.Before(depth), true
}

// selectedCells returns the absolute positions of the selected cells.
func (c *Context) selectedCells(sel doc.Selection) []int {
	rect, ok := c.SelectedRect(sel)
	if !ok {
		return nil
	}
	offsets := c.Map.CellsInRect(rect)
	out := make([]int, len(offsets))
	for i, off := range offsets {
		out[i] = c.Start + off
	}
	return out
}

// CursorIn returns a collapsed selection inside the cell at row, col of the
// table at tablePos.
func CursorIn(root *doc.Node, tablePos, row, col int) (doc.Selection, bool) {
	node := root.NodeAt(tablePos)
	if node == nil || node.Type != doc.KindTable {
		return doc.Selection{}, false
	}
	m := tablemap.Compute(node)
	if row < 0 || row >= m.Height || col < 0 || col >= m.Width {
		return doc.Selection{}, false
	}
	offset := m.CellAt(row, col)
	if offset == 0 {
		return doc.Selection{}, false
	}
	// inside the cell's first paragraph
	pos := tablePos + 1 + offset + 2
	return doc.TextSelection(pos, pos), true
}
