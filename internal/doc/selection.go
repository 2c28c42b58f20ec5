package doc

// Selection is a text range or, when Cells is set, a rectangle of table
// cells spanned by the cells starting at Anchor and Head.
type Selection struct {
	Anchor int
	Head   int
	Cells  bool
}

// TextSelection builds a collapsed or ranged text selection.
func TextSelection(anchor, head int) Selection {
	return Selection{Anchor: anchor, Head: head}
}

// CellSelection builds a selection between two cell positions.
func CellSelection(anchorCell, headCell int) Selection {
	return Selection{Anchor: anchorCell, Head: headCell, Cells: true}
}

// From is the lower end of the selection.
func (s Selection) From() int {
	return min(s.Anchor, s.Head)
}

// To is the upper end of the selection.
func (s Selection) To() int {
	return max(s.Anchor, s.Head)
}

// Empty reports whether the selection is collapsed.
func (s Selection) Empty() bool {
	return s.Anchor == s.Head
}

// Map maps the selection through a step.
func (s Selection) Map(step Step) Selection {
	return Selection{
		Anchor: step.Map(s.Anchor, -1),
		Head:   step.Map(s.Head, -1),
		Cells:  s.Cells,
	}
}
