package protocol

import (
	"image"

	"wormillum/internal/models"
	"wormillum/pkg/interpolation"
)

// SliderToBody converts a slider position, where lateral positions run from
// 0 to grid.Width, into a body-space point with a signed lateral offset.
func SliderToBody(pos image.Point, grid models.GridSize) image.Point {
	return image.Point{X: pos.X - grid.Width/2, Y: pos.Y}
}

// SquareMontage builds a rectangle in body space centred on origin with the
// given half-extents, densified into s. Rows are cropped to [1, height-1] so
// the shape never wraps past the head or tail. A zero radius in either
// dimension yields an empty montage.
func SquareMontage(origin image.Point, radius, grid models.GridSize, s *models.Scratch) models.Montage {
	if radius.Width == 0 || radius.Height == 0 {
		return s.Montage()
	}
	top := clampInt(origin.Y-radius.Height, 1, grid.Height-1)
	bottom := clampInt(origin.Y+radius.Height, 1, grid.Height-1)
	left, right := origin.X-radius.Width, origin.X+radius.Width

	sparse := models.Polygon{
		Grid: grid,
		Points: []image.Point{
			{X: left, Y: top},
			{X: right, Y: top},
			{X: right, Y: bottom},
			{X: left, Y: bottom},
		},
	}
	return interpolation.DensifyMontage(models.Montage{sparse}, s)
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
