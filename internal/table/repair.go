package table

import (
	"log"

	"beskar/editor/internal/doc"
	"beskar/editor/internal/editor"
	"beskar/editor/internal/tablemap"
)

// DragState reports whether a block drag is in progress.
type DragState interface {
	IsDragging() bool
}

// ShapeRepair fixes tables whose cells do not fill a rectangular grid
// after a transaction. It stays out of the way during a block drag and
// for transactions flagged with doc.MetaSkipShapeRepair, including
// transactions appended to a flagged one.
type ShapeRepair struct {
	drag   DragState
	logger *log.Logger
}

// NewShapeRepair builds the observer. drag may be nil.
func NewShapeRepair(drag DragState, logger *log.Logger) *ShapeRepair {
	if logger == nil {
		logger = log.Default()
	}
	return &ShapeRepair{drag: drag, logger: logger}
}

func (r *ShapeRepair) suppressed(trs []*doc.Transaction) bool {
	if r.drag != nil && r.drag.IsDragging() {
		return true
	}
	for _, tr := range trs {
		if tr.Flag(doc.MetaSkipShapeRepair) {
			return true
		}
		if root, ok := tr.Meta(editor.MetaAppendedTo).(*doc.Transaction); ok && root.Flag(doc.MetaSkipShapeRepair) {
			return true
		}
	}
	return false
}

// AppendTransaction implements editor.TransactionAppender.
func (r *ShapeRepair) AppendTransaction(trs []*doc.Transaction, oldDoc, newDoc *doc.Node) *doc.Transaction {
	if r.suppressed(trs) {
		return nil
	}
	tr := doc.NewTransaction(newDoc)
	var tables []int
	newDoc.Descendants(func(node *doc.Node, pos int, _ *doc.Node, _ int) bool {
		if node.Type != doc.KindTable {
			return true
		}
		if oldDoc.NodeAt(pos) != node {
			tables = append(tables, pos)
		}
		return false
	})
	// later tables first so earlier positions stay valid
	for i := len(tables) - 1; i >= 0; i-- {
		if err := fixTable(tr, tables[i]); err != nil {
			r.logger.Printf("table: repair table at %d: %v", tables[i], err)
		}
	}
	if !tr.DocChanged() {
		return nil
	}
	return tr.SetMeta(doc.MetaOrigin, "shapeRepair")
}

// Fix repairs every malformed table in root and returns the transaction
// holding the repairs.
func Fix(root *doc.Node) (*doc.Transaction, error) {
	tr := doc.NewTransaction(root)
	var tables []int
	root.Descendants(func(node *doc.Node, pos int, _ *doc.Node, _ int) bool {
		if node.Type == doc.KindTable {
			tables = append(tables, pos)
			return false
		}
		return true
	})
	for i := len(tables) - 1; i >= 0; i-- {
		if err := fixTable(tr, tables[i]); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// fixTable resolves the problems of the table at pos: colliding cells are
// narrowed, rowspans reaching past the last row are cut, and short rows
// are padded with empty cells.
func fixTable(tr *doc.Transaction, pos int) error {
	table := tr.Doc.NodeAt(pos)
	if table == nil || table.Type != doc.KindTable {
		return nil
	}
	m := tablemap.Compute(table)
	if m.Rectangular() {
		return nil
	}
	start := tr.Checkpoint()
	mustAdd := make([]int, m.Height)
	fixed := make(map[int]bool)
	for _, p := range m.Problems {
		switch p.Type {
		case tablemap.ProblemCollision:
			cell := table.NodeAt(p.Pos)
			if cell == nil || fixed[p.Pos] {
				continue
			}
			fixed[p.Pos] = true
			colspan := tablemap.Colspan(cell)
			n := min(p.N, colspan-1)
			if n <= 0 {
				continue
			}
			for j := 0; j < tablemap.Rowspan(cell) && p.Row+j < m.Height; j++ {
				mustAdd[p.Row+j] += n
			}
			at := tr.MapSince(start, pos+1+p.Pos, 1)
			if err := tr.SetNodeMarkup(at, doc.KindInvalid, removeColspan(cell.Attrs, colspan-n, n)); err != nil {
				return err
			}
		case tablemap.ProblemMissing:
			mustAdd[p.Row] += p.N
		case tablemap.ProblemOverlongRowspan:
			cell := table.NodeAt(p.Pos)
			if cell == nil || fixed[p.Pos] {
				continue
			}
			fixed[p.Pos] = true
			at := tr.MapSince(start, pos+1+p.Pos, 1)
			if err := tr.SetNodeAttribute(at, "rowspan", tablemap.Rowspan(cell)-p.N); err != nil {
				return err
			}
		}
	}

	rowPos := pos + 1
	for row := 0; row < m.Height; row++ {
		rowNode := table.Child(row)
		end := rowPos + rowNode.Size() - 1
		if n := mustAdd[row]; n > 0 {
			kind := doc.KindTableCell
			if rowNode.ChildCount() > 0 && allHeaders(rowNode) {
				kind = doc.KindTableHeader
			}
			cells := make([]*doc.Node, n)
			for i := range cells {
				cells[i] = emptyCell(kind)
			}
			if err := tr.Insert(tr.MapSince(start, end, 1), cells...); err != nil {
				return err
			}
		}
		rowPos = end + 1
	}
	return nil
}

func allHeaders(row *doc.Node) bool {
	for _, cell := range row.Content {
		if cell.Type != doc.KindTableHeader {
			return false
		}
	}
	return true
}
