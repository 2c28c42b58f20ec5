package dragdrop

// Point is a pointer position in screen coordinates.
type Point struct {
	X, Y float64
}

// Rect is a screen rectangle.
type Rect struct {
	Left, Top, Width, Height float64
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }
func (r Rect) MidY() float64   { return r.Top + r.Height/2 }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right() && p.Y >= r.Top && p.Y <= r.Bottom()
}

// Grow returns r expanded by d on every side.
func (r Rect) Grow(d float64) Rect {
	return Rect{Left: r.Left - d, Top: r.Top - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// placementFor puts p before the block when it is above the vertical midpoint.
func placementFor(r Rect, p Point) Placement {
	if p.Y < r.MidY() {
		return Before
	}
	return After
}
