package common

import "testing"

func TestRectIntersectionArea(t *testing.T) {
	cases := []struct {
		name string
		a, b Rect
		want float64
	}{
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 10, 10}, 0},
		{"touching_edges", Rect{0, 0, 10, 10}, Rect{10, 0, 10, 10}, 0},
		{"quarter_overlap", Rect{0, 0, 10, 10}, Rect{5, 5, 10, 10}, 25},
		{"contained", Rect{0, 0, 10, 10}, Rect{2, 2, 4, 4}, 16},
		{"identical", Rect{3, 3, 8, 8}, Rect{3, 3, 8, 8}, 64},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.IntersectionArea(c.b); got != c.want {
				t.Fatalf("IntersectionArea = %v, want %v", got, c.want)
			}
			if got := c.b.IntersectionArea(c.a); got != c.want {
				t.Fatalf("IntersectionArea should be symmetric, got %v want %v", got, c.want)
			}
			if c.a.Intersects(c.b) != (c.want > 0) {
				t.Fatalf("Intersects disagrees with intersection area %v", c.want)
			}
		})
	}
}

func TestRectExpandAndShift(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}

	e := r.Expand(2, 3)
	if e.X != 8 || e.Y != 17 || e.Width != 34 || e.Height != 46 {
		t.Fatalf("Expand(2, 3) = %+v", e)
	}

	s := r.Shift(-5, 5)
	if s.X != 5 || s.Y != 25 || s.Width != 30 || s.Height != 40 {
		t.Fatalf("Shift(-5, 5) = %+v", s)
	}

	if r.CenterX() != 25 || r.CenterY() != 40 {
		t.Fatalf("center = (%v, %v)", r.CenterX(), r.CenterY())
	}
}
