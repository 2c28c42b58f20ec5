package tablemap

import (
	"errors"
	"reflect"
	"testing"

	"beskar/editor/internal/doc"
)

func cell(text string, attrs doc.Attrs) *doc.Node {
	return doc.New(doc.KindTableCell, attrs, doc.Paragraph(text))
}

func row(cells ...*doc.Node) *doc.Node {
	return doc.New(doc.KindTableRow, nil, cells...)
}

// Each cell holding a one-character paragraph has size 5 and each row adds 2.
func grid2x2() *doc.Node {
	return doc.New(doc.KindTable, nil,
		row(cell("a", nil), cell("b", nil)),
		row(cell("c", nil), cell("d", nil)),
	)
}

func TestComputeRectangular(t *testing.T) {
	m := Compute(grid2x2())
	if m.Width != 2 || m.Height != 2 {
		t.Fatalf("size = %dx%d, want 2x2", m.Width, m.Height)
	}
	if want := []int{1, 6, 13, 18}; !reflect.DeepEqual(m.Cells, want) {
		t.Fatalf("Cells = %v, want %v", m.Cells, want)
	}
	if !m.Rectangular() || m.HasSpans() {
		t.Fatalf("unexpected problems %v", m.Problems)
	}
	if got := m.PositionAt(1, 1, grid2x2()); got != 18 {
		t.Fatalf("PositionAt(1,1) = %d, want 18", got)
	}
	if got := m.PositionAt(1, 2, grid2x2()); got != 23 {
		t.Fatalf("PositionAt(1,2) = %d, want row end 23", got)
	}
}

func TestComputeSpans(t *testing.T) {
	table := doc.New(doc.KindTable, nil,
		row(cell("a", doc.Attrs{"colspan": 2}), cell("b", doc.Attrs{"rowspan": 2})),
		row(cell("c", nil), cell("d", nil)),
	)
	m := Compute(table)
	if m.Width != 3 || !m.Rectangular() {
		t.Fatalf("width=%d problems=%v", m.Width, m.Problems)
	}
	if !m.HasSpans() {
		t.Fatal("expected spans")
	}
	rect, err := m.FindCell(1)
	if err != nil {
		t.Fatalf("FindCell() error = %v", err)
	}
	if rect != (Rect{Left: 0, Top: 0, Right: 2, Bottom: 1}) {
		t.Fatalf("FindCell(1) = %+v", rect)
	}
	rect, err = m.FindCell(6)
	if err != nil {
		t.Fatalf("FindCell() error = %v", err)
	}
	if rect != (Rect{Left: 2, Top: 0, Right: 3, Bottom: 2}) {
		t.Fatalf("FindCell(6) = %+v", rect)
	}
	if got := m.CellsInRect(Rect{Left: 0, Top: 1, Right: 3, Bottom: 2}); !reflect.DeepEqual(got, []int{13, 18}) {
		t.Fatalf("CellsInRect() = %v", got)
	}
	if _, err := m.FindCell(2); !errors.Is(err, ErrNoCell) {
		t.Fatalf("FindCell(2) error = %v, want ErrNoCell", err)
	}
}

func TestComputeReportsProblems(t *testing.T) {
	missing := doc.New(doc.KindTable, nil,
		row(cell("a", nil), cell("b", nil)),
		row(cell("c", nil)),
	)
	m := Compute(missing)
	if len(m.Problems) != 1 || m.Problems[0].Type != ProblemMissing || m.Problems[0].Row != 1 {
		t.Fatalf("Problems = %+v, want one missing slot in row 1", m.Problems)
	}

	overlong := doc.New(doc.KindTable, nil,
		row(cell("a", doc.Attrs{"rowspan": 3}), cell("b", nil)),
		row(cell("c", nil)),
	)
	m = Compute(overlong)
	found := false
	for _, p := range m.Problems {
		if p.Type == ProblemOverlongRowspan && p.N == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("Problems = %+v, want overlong rowspan", m.Problems)
	}
}
