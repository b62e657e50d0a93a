// Package interpolation densifies sparse body-space polygons into contours
// that carry a vertex on every body-grid row their edges cross.
//
// The body-to-image transform maps each row through a different centerline
// and boundary sample, so an edge spanning many rows must be sampled at every
// row or it renders as a straight chord across a bending body.
package interpolation

import (
	"image"
	"math"

	"wormillum/internal/models"
)

// DenseLen returns the number of vertices Densify produces for p.
func DenseLen(p models.Polygon) int {
	n := len(p.Points)
	total := 0
	for i := 0; i < n; i++ {
		total++
		if d := absInt(p.Points[(i+1)%n].Y - p.Points[i].Y); d > 1 {
			total += d - 1
		}
	}
	return total
}

// Densify appends the contour of p to dst and returns the extended slice.
//
// The vertices are walked as a closed loop, the last connecting back to the
// first. Each original vertex is emitted in order, followed by one vertex for
// every row strictly between it and the next vertex, visited in the edge's
// direction of travel. X is linearly interpolated against the row and rounded
// to the nearest column. Edges within a single row add nothing, so a polygon
// whose vertices all share one row comes back unchanged.
func Densify(p models.Polygon, dst []image.Point) []image.Point {
	n := len(p.Points)
	for i := 0; i < n; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		dst = append(dst, a)
		dst = appendEdge(dst, a, b)
	}
	return dst
}

// appendEdge appends the interpolated vertices strictly between a and b.
func appendEdge(dst []image.Point, a, b image.Point) []image.Point {
	dy := b.Y - a.Y
	if absInt(dy) <= 1 {
		return dst
	}
	step := 1
	if dy < 0 {
		step = -1
	}
	dx := float64(b.X - a.X)
	for row := a.Y + step; row != b.Y; row += step {
		t := float64(row-a.Y) / float64(dy)
		x := float64(a.X) + t*dx
		dst = append(dst, image.Point{X: int(math.Round(x)), Y: row})
	}
	return dst
}

// Contour returns the densified form of p in freshly allocated storage.
func Contour(p models.Polygon) models.Polygon {
	pts := make([]image.Point, 0, DenseLen(p))
	return models.Polygon{Points: Densify(p, pts), Grid: p.Grid}
}

// DensifyMontage converts every polygon of src into a contour carved from the
// scratch context s. src is not modified. The returned montage is valid until
// s is reset.
func DensifyMontage(src models.Montage, s *models.Scratch) models.Montage {
	out := s.Montage()
	for _, p := range src {
		pts := Densify(p, s.Points(DenseLen(p)))
		out = append(out, models.Polygon{Points: pts, Grid: p.Grid})
	}
	s.Keep(out)
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
