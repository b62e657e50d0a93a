package models

import (
	"fmt"
	"image"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// GridSize is the resolution of the normalized body-relative coordinate system.
// Height is the number of rows along the head-to-tail axis, Width the number of
// lateral columns spanning left boundary to right boundary.
type GridSize struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (g GridSize) Valid() bool {
	return g.Width > 0 && g.Height > 0
}

// Radius is the lateral scale radius (Width-1)/2. A body-space point with
// |x| == Radius lies exactly on a boundary.
func (g GridSize) Radius() float64 {
	return float64(g.Width-1) / 2
}

func (g GridSize) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// Polygon is an ordered, non-empty sequence of vertices tagged with the grid
// it was authored against. In body space Y is a row index and X a signed
// lateral offset from the centerline; in image space both are pixels.
//
// A sparse polygon holds only the author's vertices. A dense polygon (contour)
// holds at least one vertex for every row its edges cross.
type Polygon struct {
	Points []image.Point
	Grid   GridSize
}

// NewPolygon returns a polygon on grid holding a copy of pts.
func NewPolygon(grid GridSize, pts ...image.Point) Polygon {
	cp := make([]image.Point, len(pts))
	copy(cp, pts)
	return Polygon{Points: cp, Grid: grid}
}

// Len returns the number of vertices.
func (p Polygon) Len() int { return len(p.Points) }

// Clone returns a deep copy of p.
func (p Polygon) Clone() Polygon {
	return NewPolygon(p.Grid, p.Points...)
}

// RowSpan returns the minimum and maximum row index of the polygon's vertices.
// ok is false for an empty polygon.
func (p Polygon) RowSpan() (lo, hi int, ok bool) {
	if len(p.Points) == 0 {
		return 0, 0, false
	}
	lo, hi = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points[1:] {
		if pt.Y < lo {
			lo = pt.Y
		}
		if pt.Y > hi {
			hi = pt.Y
		}
	}
	return lo, hi, true
}

// Ring returns the polygon as a closed orb ring.
func (p Polygon) Ring() orb.Ring {
	r := make(orb.Ring, 0, len(p.Points)+1)
	for _, pt := range p.Points {
		r = append(r, orb.Point{float64(pt.X), float64(pt.Y)})
	}
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

// Bounds returns the smallest integer rectangle containing every vertex.
// The rectangle is inclusive of the maximum vertex, so a single-point polygon
// yields a 1x1 rectangle.
func (p Polygon) Bounds() image.Rectangle {
	if len(p.Points) == 0 {
		return image.Rectangle{}
	}
	b := p.Ring().Bound()
	return image.Rect(int(b.Min.X()), int(b.Min.Y()), int(b.Max.X())+1, int(b.Max.Y())+1)
}

// Contains reports whether pt lies inside the closed polygon or on its
// outline.
func (p Polygon) Contains(pt image.Point) bool {
	if len(p.Points) == 0 {
		return false
	}
	return planar.RingContains(p.Ring(), orb.Point{float64(pt.X), float64(pt.Y)})
}

// Montage is the ordered set of polygons illuminated during one protocol step.
type Montage []Polygon

// Add appends a polygon to the montage.
func (m *Montage) Add(p Polygon) {
	*m = append(*m, p)
}

// NumPoints returns the total number of vertices across all polygons.
func (m Montage) NumPoints() int {
	n := 0
	for _, p := range m {
		n += len(p.Points)
	}
	return n
}

// Contains reports whether any polygon of m contains pt.
func (m Montage) Contains(pt image.Point) bool {
	for _, p := range m {
		if p.Contains(pt) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of m.
func (m Montage) Clone() Montage {
	if m == nil {
		return nil
	}
	out := make(Montage, len(m))
	for i, p := range m {
		out[i] = p.Clone()
	}
	return out
}
