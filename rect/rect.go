// Package rect implements the 2-D integer rectangle math the layout
// tree uses to tile pane regions: split-by-ratio along either axis and
// point containment.
package rect

// Rect is an axis-aligned rectangle in terminal cell units.
type Rect struct {
	X, Y, W, H uint16
}

// New builds a Rect from its fields.
func New(x, y, w, h uint16) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// Contains reports whether the point (col, row) falls inside the
// half-open interval [x, x+w) x [y, y+h).
func (r Rect) Contains(col, row uint16) bool {
	return col >= r.X && col < r.X+r.W && row >= r.Y && row < r.Y+r.H
}

// Area returns width*height as a 32-bit value to avoid overflow when
// summing many pane areas.
func (r Rect) Area() uint32 {
	return uint32(r.W) * uint32(r.H)
}

// clampRatio restricts ratio to [0, 1]; callers pass split ratios that
// are already clamped to [0.1, 0.9] by the layout tree, but the rect
// math itself only needs to guard against degenerate input.
func clampRatio(ratio float64) float64 {
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// clampDim restricts a computed child dimension to [1, parent-1], the
// minimum tiling contract spec.md §4.1 requires whenever parent >= 2.
func clampDim(dim, parent uint16) uint16 {
	if parent < 2 {
		return dim
	}
	if dim < 1 {
		return 1
	}
	if dim > parent-1 {
		return parent - 1
	}
	return dim
}

// SplitHorizontal splits r into (top, bottom) along the y axis. top
// gets floor(height*ratio) rows, clamped to [1, height-1] whenever
// height >= 2; bottom gets the remainder so the two tile r exactly.
func (r Rect) SplitHorizontal(ratio float64) (top, bottom Rect) {
	topH := uint16(float64(r.H) * clampRatio(ratio))
	topH = clampDim(topH, r.H)
	bottomH := r.H - topH

	top = Rect{X: r.X, Y: r.Y, W: r.W, H: topH}
	bottom = Rect{X: r.X, Y: r.Y + topH, W: r.W, H: bottomH}
	return top, bottom
}

// SplitVertical splits r into (left, right) along the x axis,
// symmetric to SplitHorizontal.
func (r Rect) SplitVertical(ratio float64) (left, right Rect) {
	leftW := uint16(float64(r.W) * clampRatio(ratio))
	leftW = clampDim(leftW, r.W)
	rightW := r.W - leftW

	left = Rect{X: r.X, Y: r.Y, W: leftW, H: r.H}
	right = Rect{X: r.X + leftW, Y: r.Y, W: rightW, H: r.H}
	return left, right
}
