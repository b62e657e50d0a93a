// Package render rasterizes body-space illumination montages into masks.
//
// Every vertex is mapped into image space against the current body estimate,
// then each polygon is filled with an anti-aliased scanline rasterizer. All
// polygons of a montage accumulate into the same coverage mask, which is
// composited onto the target only once every vertex has transformed
// successfully, so a failed render leaves the target untouched.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"

	"wormillum/internal/models"
	"wormillum/pkg/bodyspace"
	"wormillum/pkg/protocol"
)

// Renderer draws montages for one grid. It reuses its scratch context and
// rasterizer across frames and must not be shared between goroutines.
type Renderer struct {
	// Grid is the body-grid resolution montages are authored against.
	Grid models.GridSize

	// Flip mirrors every pattern across the centerline.
	Flip bool

	// Fill is the color drawn over illuminated pixels. Nil means white.
	Fill color.Color

	// Threshold, when non-zero, binarizes coverage: pixels covered at least
	// Threshold/255 become fully lit, the rest stay dark.
	Threshold uint8

	scratch *models.Scratch
	raster  *vector.Rasterizer
	mask    *image.Alpha
	polys   [][]image.Point
}

// NewRenderer returns a renderer for grid.
func NewRenderer(grid models.GridSize, flip bool) *Renderer {
	return &Renderer{
		Grid:    grid,
		Flip:    flip,
		scratch: models.NewScratch(),
		raster:  vector.NewRasterizer(0, 0),
	}
}

// Montage renders a dense montage into dst. dst's existing content is kept
// and illuminated pixels are drawn over it. Each polygon covers its interior
// and its outline, so a polygon lying on a single row lights that row. An
// empty montage leaves dst unchanged. The estimate is validated first; on any error nothing is drawn.
func (r *Renderer) Montage(dst draw.Image, m models.Montage, est *models.BodyEstimate) error {
	defer r.scratch.Reset()
	return r.montage(dst, m, est)
}

// Step densifies step of p and renders it into dst, the whole-pipeline
// equivalent of fetching the step, interpolating it and calling Montage.
func (r *Renderer) Step(dst draw.Image, p *protocol.Protocol, step int, est *models.BodyEstimate) error {
	defer r.scratch.Reset()
	if err := est.Validate(r.Grid); err != nil {
		return err
	}
	m, err := p.StepContour(step, r.scratch)
	if err != nil {
		return err
	}
	return r.montage(dst, m, est)
}

func (r *Renderer) montage(dst draw.Image, m models.Montage, est *models.BodyEstimate) error {
	if err := est.Validate(r.Grid); err != nil {
		return err
	}
	if !r.Grid.Valid() {
		return fmt.Errorf("%w: %s", models.ErrInvalidGridSize, r.Grid)
	}

	r.polys = r.polys[:0]
	for i, poly := range m {
		pts, err := bodyspace.Polygon(r.scratch.Points(len(poly.Points)), poly, est, r.Grid, r.Flip)
		if err != nil {
			return fmt.Errorf("polygon %d: %w", i, err)
		}
		r.polys = append(r.polys, pts)
	}
	if len(r.polys) == 0 {
		return nil
	}
	r.fill(dst, r.polys, image.Point{})
	return nil
}

// fill rasterizes each closed polygon, shifted by off, into the coverage mask
// and composites the mask onto dst. Outline pixels are lit in full, so the
// boundary belongs to the shape and a zero-area polygon still lights its edge.
func (r *Renderer) fill(dst draw.Image, polys [][]image.Point, off image.Point) {
	b := dst.Bounds()
	if r.mask == nil || r.mask.Bounds() != b {
		r.mask = image.NewAlpha(b)
	} else {
		clear(r.mask.Pix)
	}

	drawn := false
	for _, pts := range polys {
		if len(pts) == 0 {
			continue
		}
		shape := models.Polygon{Points: pts}
		if !shape.Bounds().Add(off).Overlaps(b) {
			continue
		}
		r.raster.Reset(b.Dx(), b.Dy())
		for i, pt := range pts {
			// integer coordinates name pixel centres
			x := float32(pt.X+off.X-b.Min.X) + 0.5
			y := float32(pt.Y+off.Y-b.Min.Y) + 0.5
			if i == 0 {
				r.raster.MoveTo(x, y)
			} else {
				r.raster.LineTo(x, y)
			}
		}
		r.raster.ClosePath()
		r.raster.Draw(r.mask, b, image.Opaque, image.Point{})
		for i, pt := range pts {
			next := pts[(i+1)%len(pts)]
			strokeLine(r.mask, pt.Add(off), next.Add(off))
		}
		drawn = true
	}
	if !drawn {
		return
	}

	if r.Threshold > 0 {
		for i, a := range r.mask.Pix {
			if a >= r.Threshold {
				r.mask.Pix[i] = 0xff
			} else {
				r.mask.Pix[i] = 0
			}
		}
	}

	fill := r.Fill
	if fill == nil {
		fill = color.White
	}
	draw.DrawMask(dst, b, image.NewUniform(fill), image.Point{}, r.mask, b.Min, draw.Over)
}

// strokeLine lights every pixel of the segment a-b with Bresenham's
// algorithm, clipped to the mask.
func strokeLine(mask *image.Alpha, a, b image.Point) {
	dx, dy := absInt(b.X-a.X), -absInt(b.Y-a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	for {
		if a.In(mask.Rect) {
			mask.Pix[mask.PixOffset(a.X, a.Y)] = 0xff
		}
		if a == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			a.X += sx
		}
		if e2 <= dx {
			e += dx
			a.Y += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// IllumMontage renders a dense montage into dst with a one-off renderer.
func IllumMontage(dst draw.Image, m models.Montage, est *models.BodyEstimate, grid models.GridSize, flip bool) error {
	return NewRenderer(grid, flip).Montage(dst, m, est)
}

// RectBody draws a dense montage directly in body space, as if the body were
// a straight, upright rectangle: column x+width/2, row y. dst is typically
// width x height pixels.
func (r *Renderer) RectBody(dst draw.Image, m models.Montage) {
	defer r.scratch.Reset()
	r.polys = r.polys[:0]
	for _, poly := range m {
		pts := r.scratch.Points(len(poly.Points))
		for _, pt := range poly.Points {
			if r.Flip {
				pt.X = -pt.X
			}
			pts = append(pts, pt)
		}
		r.polys = append(r.polys, pts)
	}
	r.fill(dst, r.polys, image.Point{X: r.Grid.Width / 2})
}

// Flood lights every pixel of dst.
func Flood(dst draw.Image) {
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
}

// Invert swaps lit and dark pixels of a mask in place.
func Invert(dst *image.Gray) {
	for i, v := range dst.Pix {
		dst.Pix[i] = 0xff - v
	}
}
