package slider

// Point is a location in control-local surface units
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in control-local surface units
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Center returns the visual centre of the rectangle
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2.0, Y: r.Y + r.Height/2.0}
}

// Contains reports whether p lies inside or on the edge of the rectangle
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Inset shrinks the rectangle by dx on the left and right and dy on the top and bottom.
// Negative values grow it
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width - 2*dx, Height: r.Height - 2*dy}
}

// Geometry answers the layout questions a host toolkit would normally answer for its slider
type Geometry interface {
	TrackRect(bounds Rect) Rect
	ThumbRect(bounds Rect, track Rect, value, minimum, maximum float64) Rect
}

// LinearGeometry lays the track across the full width of the bounds and moves
// a fixed-size thumb along it, like a stock horizontal slider
type LinearGeometry struct {
	TrackHeight float64
	ThumbWidth  float64
	ThumbHeight float64
}

// DefaultGeometry matches the stock slider metrics of a 31-unit tall control
var DefaultGeometry = LinearGeometry{
	TrackHeight: 2,
	ThumbWidth:  31,
	ThumbHeight: 31,
}

// TrackRect implements Geometry
func (g LinearGeometry) TrackRect(bounds Rect) Rect {
	return Rect{
		X:      bounds.X,
		Y:      bounds.Y + (bounds.Height-g.TrackHeight)/2.0,
		Width:  bounds.Width,
		Height: g.TrackHeight,
	}
}

// ThumbRect implements Geometry
func (g LinearGeometry) ThumbRect(bounds Rect, track Rect, value, minimum, maximum float64) Rect {
	fraction := 0.0
	if maximum > minimum {
		fraction = (value - minimum) / (maximum - minimum)
	}

	travel := track.Width - g.ThumbWidth
	if travel < 0 {
		travel = 0
	}

	return Rect{
		X:      track.X + fraction*travel,
		Y:      bounds.Y + (bounds.Height-g.ThumbHeight)/2.0,
		Width:  g.ThumbWidth,
		Height: g.ThumbHeight,
	}
}
