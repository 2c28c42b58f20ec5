// Package tablemap computes the rectangular grid view of a table node. Each
// grid slot holds the offset of the cell covering it, relative to the start
// of the table's content.
package tablemap

import (
	"errors"
	"fmt"

	"beskar/editor/internal/doc"
)

// ErrNoCell is returned when a position does not start a cell of the table.
var ErrNoCell = errors.New("no cell at position")

// ProblemType classifies a shape defect found while computing a map.
type ProblemType string

const (
	ProblemCollision       ProblemType = "collision"
	ProblemMissing         ProblemType = "missing"
	ProblemOverlongRowspan ProblemType = "overlong_rowspan"
)

// Problem describes a defect. Pos is the cell offset for collisions and
// overlong rowspans, Row the affected row, N the number of slots involved.
type Problem struct {
	Type ProblemType
	Pos  int
	Row  int
	N    int
}

// Rect is a half-open rectangle of grid slots.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Map is the grid view of one table.
type Map struct {
	Width    int
	Height   int
	Cells    []int
	Problems []Problem
}

// Colspan returns the colspan attribute of a cell, defaulting to 1.
func Colspan(cell *doc.Node) int {
	return max(1, cell.Attrs.Int("colspan", 1))
}

// Rowspan returns the rowspan attribute of a cell, defaulting to 1.
func Rowspan(cell *doc.Node) int {
	return max(1, cell.Attrs.Int("rowspan", 1))
}

// Compute builds the map for table. Defects do not stop the computation;
// they are reported in Problems and the grid is filled as far as possible.
func Compute(table *doc.Node) *Map {
	width := findWidth(table)
	height := table.ChildCount()
	m := &Map{Width: width, Height: height, Cells: make([]int, width*height)}
	filled := make([]bool, width*height)

	mapPos := 0
	pos := 0
	for row := 0; row < height; row++ {
		rowNode := table.Child(row)
		pos++
		for i := 0; ; i++ {
			for mapPos < len(filled) && filled[mapPos] {
				mapPos++
			}
			if i == rowNode.ChildCount() {
				break
			}
			cell := rowNode.Child(i)
			colspan, rowspan := Colspan(cell), Rowspan(cell)
			for h := 0; h < rowspan; h++ {
				if h+row >= height {
					m.Problems = append(m.Problems, Problem{Type: ProblemOverlongRowspan, Pos: pos, Row: row, N: rowspan - h})
					break
				}
				start := mapPos + h*width
				for w := 0; w < colspan; w++ {
					slot := start + w
					if slot >= len(filled) {
						break
					}
					if !filled[slot] {
						filled[slot] = true
						m.Cells[slot] = pos
					} else {
						m.Problems = append(m.Problems, Problem{Type: ProblemCollision, Pos: pos, Row: row, N: colspan - w})
					}
				}
			}
			mapPos += colspan
			pos += cell.Size()
		}

		expected := (row + 1) * width
		missing := 0
		for mapPos < expected {
			if !filled[mapPos] {
				missing++
			}
			mapPos++
		}
		if missing > 0 {
			m.Problems = append(m.Problems, Problem{Type: ProblemMissing, Row: row, N: missing})
		}
		pos++
	}
	return m
}

func findWidth(table *doc.Node) int {
	width := -1
	hasRowspan := false
	for row := 0; row < table.ChildCount(); row++ {
		rowNode := table.Child(row)
		rowWidth := 0
		if hasRowspan {
			for j := 0; j < row; j++ {
				prev := table.Child(j)
				for _, cell := range prev.Content {
					if j+Rowspan(cell) > row {
						rowWidth += Colspan(cell)
					}
				}
			}
		}
		for _, cell := range rowNode.Content {
			rowWidth += Colspan(cell)
			if Rowspan(cell) > 1 {
				hasRowspan = true
			}
		}
		if width == -1 {
			width = rowWidth
		} else if width != rowWidth {
			width = max(width, rowWidth)
		}
	}
	return max(width, 0)
}

// CellAt returns the offset of the cell covering the slot at row, col, or
// 0 when no cell fills the slot. Cell offsets are never 0.
func (m *Map) CellAt(row, col int) int {
	return m.Cells[row*m.Width+col]
}

// FindCell returns the rectangle covered by the cell at offset pos.
func (m *Map) FindCell(pos int) (Rect, error) {
	for i, cur := range m.Cells {
		if cur != pos {
			continue
		}
		left, top := i%m.Width, i/m.Width
		right, bottom := left+1, top+1
		for j := 1; right < m.Width && m.Cells[i+j] == cur; j++ {
			right++
		}
		for j := 1; bottom < m.Height && m.Cells[i+m.Width*j] == cur; j++ {
			bottom++
		}
		return Rect{Left: left, Top: top, Right: right, Bottom: bottom}, nil
	}
	return Rect{}, fmt.Errorf("find cell %d: %w", pos, ErrNoCell)
}

// ColCount returns the left column of the cell at offset pos.
func (m *Map) ColCount(pos int) (int, error) {
	for i, cur := range m.Cells {
		if cur == pos {
			return i % m.Width, nil
		}
	}
	return 0, fmt.Errorf("col count %d: %w", pos, ErrNoCell)
}

// RectBetween returns the smallest rectangle covering both cells.
func (m *Map) RectBetween(a, b int) (Rect, error) {
	ra, err := m.FindCell(a)
	if err != nil {
		return Rect{}, err
	}
	rb, err := m.FindCell(b)
	if err != nil {
		return Rect{}, err
	}
	return Rect{
		Left:   min(ra.Left, rb.Left),
		Top:    min(ra.Top, rb.Top),
		Right:  max(ra.Right, rb.Right),
		Bottom: max(ra.Bottom, rb.Bottom),
	}, nil
}

// CellsInRect returns the offsets of the cells whose top-left slot lies in
// rect, each cell once.
func (m *Map) CellsInRect(rect Rect) []int {
	var out []int
	seen := make(map[int]bool)
	for row := rect.Top; row < rect.Bottom; row++ {
		for col := rect.Left; col < rect.Right; col++ {
			index := row*m.Width + col
			pos := m.Cells[index]
			if pos == 0 || seen[pos] {
				continue
			}
			seen[pos] = true
			if (col == rect.Left && col > 0 && m.Cells[index-1] == pos) ||
				(row == rect.Top && row > 0 && m.Cells[index-m.Width] == pos) {
				continue
			}
			out = append(out, pos)
		}
	}
	return out
}

// PositionAt returns the offset at which a cell starting at row, col would
// be inserted into table. Slots covered by cells from earlier rows are
// skipped.
func (m *Map) PositionAt(row, col int, table *doc.Node) int {
	rowStart := 0
	for i := 0; i < table.ChildCount(); i++ {
		rowEnd := rowStart + table.Child(i).Size()
		if i == row {
			index := col + row*m.Width
			rowEndIndex := (row + 1) * m.Width
			for index < rowEndIndex && m.Cells[index] < rowStart {
				index++
			}
			if index == rowEndIndex {
				return rowEnd - 1
			}
			return m.Cells[index]
		}
		rowStart = rowEnd
	}
	return rowStart
}

// HasSpans reports whether any cell spans more than one slot.
func (m *Map) HasSpans() bool {
	seen := make(map[int]bool, len(m.Cells))
	for _, pos := range m.Cells {
		if pos == 0 {
			continue
		}
		if seen[pos] {
			return true
		}
		seen[pos] = true
	}
	return false
}

// Rectangular reports whether the map has no shape problems.
func (m *Map) Rectangular() bool {
	return len(m.Problems) == 0
}
