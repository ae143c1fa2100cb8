package common

// Rect is an axis-aligned rectangle in world pixels, top-left anchored
// (screen coordinates, positive Y is down).
type Rect struct {
	X, Y          float64
	Width, Height float64
}

func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.Width &&
		r.X+r.Width > other.X &&
		r.Y < other.Y+other.Height &&
		r.Y+r.Height > other.Y
}

// IntersectionArea returns the overlapping area of r and other, 0 when
// they do not intersect.
func (r Rect) IntersectionArea(other Rect) float64 {
	w := min(r.X+r.Width, other.X+other.Width) - max(r.X, other.X)
	h := min(r.Y+r.Height, other.Y+other.Height) - max(r.Y, other.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

func (r Rect) Area() float64 {
	return r.Width * r.Height
}

func (r Rect) CenterX() float64 { return r.X + r.Width/2 }
func (r Rect) CenterY() float64 { return r.Y + r.Height/2 }

// Expand grows the rect by dx/dy on each side (negative values shrink).
func (r Rect) Expand(dx, dy float64) Rect {
	return Rect{X: r.X - dx, Y: r.Y - dy, Width: r.Width + 2*dx, Height: r.Height + 2*dy}
}

// Shift returns the rect translated by (dx, dy).
func (r Rect) Shift(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}
