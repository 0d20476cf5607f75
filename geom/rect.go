package geom

// Rect is an axis-aligned rectangle on the terminal cell grid. X and Y are
// the top-left corner, Width and Height are cell counts and never negative.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Right returns the x coordinate of the right edge (exclusive).
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom returns the y coordinate of the bottom edge (exclusive).
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

func (r Rect) Area() int {
	return r.Width * r.Height
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersects reports whether the overlap of both rectangles has positive
// area. A shared edge or a zero-width overlap does not count as an
// intersection.
func (r Rect) Intersects(other Rect) bool {
	return min(r.Right(), other.Right()) > max(r.X, other.X) &&
		min(r.Bottom(), other.Bottom()) > max(r.Y, other.Y)
}

// Contains reports whether other lies entirely within r, edges included.
func (r Rect) Contains(other Rect) bool {
	return other.X >= r.X && other.Y >= r.Y &&
		other.Right() <= r.Right() && other.Bottom() <= r.Bottom()
}

// ContainsPoint reports whether the cell (x, y) lies within r. The left and
// top edges are inclusive, the right and bottom edges exclusive, so a WxH
// rectangle contains exactly W*H cells.
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Union returns the smallest rectangle enclosing both r and other.
func (r Rect) Union(other Rect) Rect {
	x := min(r.X, other.X)
	y := min(r.Y, other.Y)
	right := max(r.Right(), other.Right())
	bottom := max(r.Bottom(), other.Bottom())

	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Intersect returns the overlapping region of both rectangles, or the zero
// Rect when they do not intersect.
func (r Rect) Intersect(other Rect) Rect {
	x := max(r.X, other.X)
	y := max(r.Y, other.Y)
	right := min(r.Right(), other.Right())
	bottom := min(r.Bottom(), other.Bottom())

	if right-x <= 0 || bottom-y <= 0 {
		return Rect{}
	}

	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Enlargement returns how much r's area has to grow to enclose other.
func (r Rect) Enlargement(other Rect) int {
	return r.Union(other).Area() - r.Area()
}
