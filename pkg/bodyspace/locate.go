package bodyspace

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"

	"wormillum/internal/models"
)

// rowPoint is a centerline sample indexed for nearest-neighbour search.
type rowPoint struct {
	X, Y float64
	Row  int
}

// Compare implements the kdtree.Comparable interface
func (p rowPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(rowPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

func (p rowPoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between two points
func (p rowPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(rowPoint)
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

type rowPoints []rowPoint

func (p rowPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p rowPoints) Len() int                              { return len(p) }
func (p rowPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p rowPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(rowPlane{rowPoints: p, Dim: d}, kdtree.MedianOfRandoms(rowPlane{rowPoints: p, Dim: d}, 100))
}

type rowPlane struct {
	rowPoints
	kdtree.Dim
}

func (p rowPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.rowPoints[i].X < p.rowPoints[j].X
	case 1:
		return p.rowPoints[i].Y < p.rowPoints[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p rowPlane) Slice(start, end int) kdtree.SortSlicer {
	return rowPlane{rowPoints: p.rowPoints[start:end], Dim: p.Dim}
}

func (p rowPlane) Swap(i, j int) {
	p.rowPoints[i], p.rowPoints[j] = p.rowPoints[j], p.rowPoints[i]
}

// Locator maps image pixels back into body space for one estimate. It is the
// approximate inverse of ToImage: the row is that of the nearest centerline
// sample and the lateral offset is the pixel's projection onto that row's
// boundary vectors.
type Locator struct {
	est  *models.BodyEstimate
	grid models.GridSize
	tree *kdtree.Tree
}

// NewLocator indexes the first grid.Height centerline samples of est.
func NewLocator(est *models.BodyEstimate, grid models.GridSize) (*Locator, error) {
	if err := est.Validate(grid); err != nil {
		return nil, err
	}
	if grid.Radius() <= 0 {
		return nil, fmt.Errorf("%w: width %d gives no lateral extent", models.ErrInvalidGridSize, grid.Width)
	}
	pts := make(rowPoints, grid.Height)
	for i := range pts {
		c := est.Centerline[i]
		pts[i] = rowPoint{X: float64(c.X), Y: float64(c.Y), Row: i}
	}
	return &Locator{est: est, grid: grid, tree: kdtree.New(pts, false)}, nil
}

// Locate returns the body-space point nearest pt. Pixels beyond a boundary
// yield |x| greater than the grid radius. When flip is set the lateral offset
// is mirrored, so Locate inverts ToImage with the same flip.
func (l *Locator) Locate(pt image.Point, flip bool) image.Point {
	near, _ := l.tree.Nearest(rowPoint{X: float64(pt.X), Y: float64(pt.Y)})
	row := near.(rowPoint).Row

	c := vec(l.est.Centerline[row])
	d := r2.Sub(vec(pt), c)
	right := l.lateral(d, c, l.est.RightBound[row])
	left := l.lateral(d, c, l.est.LeftBound[row])

	x := 0
	switch {
	case right > 0 && right >= left:
		x = int(math.Round(right))
	case left > 0:
		x = -int(math.Round(left))
	}
	if flip {
		x = -x
	}
	return image.Point{X: x, Y: row}
}

// lateral projects d onto the centre-to-bound vector, in grid columns.
func (l *Locator) lateral(d, c r2.Vec, bound image.Point) float64 {
	toBound := r2.Sub(vec(bound), c)
	n := r2.Dot(toBound, toBound)
	if n == 0 {
		return 0
	}
	return r2.Dot(d, toBound) / n * l.grid.Radius()
}
