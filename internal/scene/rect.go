package scene

// Rect is an axis-aligned pixel rectangle in compositor (global)
// coordinates, following the teacher's Fixed-point conventions for
// signed geometry.
type Rect struct {
	X, Y          int32
	Width, Height int32
}

// X2 returns the rectangle's right edge.
func (r Rect) X2() int32 { return r.X + r.Width }

// Y2 returns the rectangle's bottom edge.
func (r Rect) Y2() int32 { return r.Y + r.Height }

// Clamp returns r translated and shrunk so it fits entirely within
// bounds, used by map_floating (spec §4.5) to keep new floats on
// their output.
func (r Rect) Clamp(bounds Rect) Rect {
	out := r
	if out.Width > bounds.Width {
		out.Width = bounds.Width
	}
	if out.Height > bounds.Height {
		out.Height = bounds.Height
	}
	if out.X < bounds.X {
		out.X = bounds.X
	}
	if out.Y < bounds.Y {
		out.Y = bounds.Y
	}
	if out.X2() > bounds.X2() {
		out.X = bounds.X2() - out.Width
	}
	if out.Y2() > bounds.Y2() {
		out.Y = bounds.Y2() - out.Height
	}
	return out
}
