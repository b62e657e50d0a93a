// Package bodyspace maps points from the body-relative grid into image
// coordinates using a live centerline and boundary estimate.
//
// A body-space point (x, y) names row y along the head-to-tail axis and a
// signed lateral offset x from the centerline. Its image position is found by
// walking from Centerline[y] towards the boundary on x's side, a fraction
// |x|/R of the way, where R = (width-1)/2. The same logical shape therefore
// follows the body as it bends and moves.
package bodyspace

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"wormillum/internal/models"
)

// ToImage transforms one body-space point into image space.
//
// x == 0 yields Centerline[y] exactly, regardless of flip. When flip is set x
// is negated before the boundary is chosen, mirroring the pattern across the
// centerline. Results are rounded to the nearest pixel with ties resolved
// towards the side being addressed.
func ToImage(pt image.Point, est *models.BodyEstimate, grid models.GridSize, flip bool) (image.Point, error) {
	if est == nil {
		return image.Point{}, fmt.Errorf("%w: nil estimate", models.ErrInvalidBodyEstimate)
	}
	if pt.Y < 0 || pt.Y >= est.Len() {
		return image.Point{}, fmt.Errorf("%w: row %d outside estimate of %d rows",
			models.ErrPointIndexOutOfRange, pt.Y, est.Len())
	}
	center := est.Centerline[pt.Y]
	if pt.X == 0 {
		return center, nil
	}

	x := pt.X
	if flip {
		x = -x
	}

	bound, sign := est.RightBound[pt.Y], 1.0
	if x < 0 {
		bound, sign = est.LeftBound[pt.Y], -1.0
	}

	radius := grid.Radius()
	if radius <= 0 {
		return image.Point{}, fmt.Errorf("%w: width %d gives no lateral extent",
			models.ErrInvalidGridSize, grid.Width)
	}

	c := vec(center)
	toBound := r2.Sub(vec(bound), c)
	frac := sign * float64(x) / radius
	out := r2.Add(c, r2.Scale(frac, toBound))

	return image.Point{X: roundToward(out.X, sign), Y: roundToward(out.Y, sign)}, nil
}

// roundToward rounds v to the nearest integer after a half-pixel bias in the
// direction of sign. Exact integers are returned unchanged on both sides.
func roundToward(v, sign float64) int {
	if sign > 0 {
		return int(math.Floor(v + 0.5))
	}
	return int(math.Ceil(v - 0.5))
}

func vec(p image.Point) r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}

// Polygon transforms every vertex of src into image space, appending to dst
// in order. On error dst is returned truncated to its original length.
func Polygon(dst []image.Point, src models.Polygon, est *models.BodyEstimate, grid models.GridSize, flip bool) ([]image.Point, error) {
	start := len(dst)
	for i, pt := range src.Points {
		out, err := ToImage(pt, est, grid, flip)
		if err != nil {
			return dst[:start], fmt.Errorf("vertex %d: %w", i, err)
		}
		dst = append(dst, out)
	}
	return dst, nil
}
