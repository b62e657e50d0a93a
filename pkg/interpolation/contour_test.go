package interpolation

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wormillum/internal/models"
)

var testGrid = models.GridSize{Width: 11, Height: 20}

// rowsCovered returns the set of rows holding at least one vertex
func rowsCovered(pts []image.Point) map[int]bool {
	rows := make(map[int]bool)
	for _, pt := range pts {
		rows[pt.Y] = true
	}
	return rows
}

// TestDensifyRectangle verifies a sparse rectangle gains one vertex per row on each side
func TestDensifyRectangle(t *testing.T) {
	rect := models.NewPolygon(testGrid,
		image.Point{-3, 2}, image.Point{3, 2}, image.Point{3, 6}, image.Point{-3, 6})

	got := Contour(rect)

	expected := []image.Point{
		{-3, 2},
		{3, 2}, {3, 3}, {3, 4}, {3, 5},
		{3, 6},
		{-3, 6}, {-3, 5}, {-3, 4}, {-3, 3},
	}
	if diff := cmp.Diff(expected, got.Points); diff != "" {
		t.Errorf("Contour mismatch (-expected +got):\n%s", diff)
	}
	if got.Grid != testGrid {
		t.Errorf("Contour should keep the grid tag, got %v", got.Grid)
	}
	if DenseLen(rect) != len(got.Points) {
		t.Errorf("DenseLen: expected %d, got %d", len(got.Points), DenseLen(rect))
	}
}

// TestDensifySlantedEdge verifies linear interpolation of x and rounding
func TestDensifySlantedEdge(t *testing.T) {
	tri := models.NewPolygon(testGrid, image.Point{0, 0}, image.Point{5, 4}, image.Point{0, 4})

	got := Contour(tri).Points

	// edge (0,0)->(5,4): x = 1.25, 2.5, 3.75 at rows 1..3
	// closing edge (0,4)->(0,0) walks rows upwards
	expected := []image.Point{
		{0, 0}, {1, 1}, {3, 2}, {4, 3},
		{5, 4},
		{0, 4}, {0, 3}, {0, 2}, {0, 1},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Contour mismatch (-expected +got):\n%s", diff)
	}
}

// TestDensifyCoversEveryRow verifies the density property on assorted shapes
func TestDensifyCoversEveryRow(t *testing.T) {
	shapes := [][]image.Point{
		{{0, 0}, {5, 19}},
		{{-5, 3}, {5, 17}, {0, 10}},
		{{2, 18}, {-4, 1}, {3, 9}, {-1, 0}},
		{{0, 5}, {1, 5}, {2, 12}},
	}

	for i, pts := range shapes {
		p := models.NewPolygon(testGrid, pts...)
		got := rowsCovered(Contour(p).Points)

		n := len(pts)
		for j := 0; j < n; j++ {
			a, b := pts[j], pts[(j+1)%n]
			lo, hi := a.Y, b.Y
			if lo > hi {
				lo, hi = hi, lo
			}
			for row := lo; row <= hi; row++ {
				if !got[row] {
					t.Errorf("shape %d: edge %v->%v leaves row %d without a vertex", i, a, b, row)
				}
			}
		}
	}
}

// TestDensifyIdempotent verifies a dense contour comes back unchanged
func TestDensifyIdempotent(t *testing.T) {
	sparse := models.NewPolygon(testGrid,
		image.Point{-5, 1}, image.Point{4, 3}, image.Point{2, 15}, image.Point{-2, 11})

	once := Contour(sparse)
	twice := Contour(once)

	if diff := cmp.Diff(once.Points, twice.Points); diff != "" {
		t.Errorf("densifying a contour changed it (-once +twice):\n%s", diff)
	}
}

// TestDensifyDegenerate verifies single-row and single-vertex polygons
func TestDensifyDegenerate(t *testing.T) {
	flat := models.NewPolygon(testGrid, image.Point{-2, 7}, image.Point{0, 7}, image.Point{3, 7})
	if diff := cmp.Diff(flat.Points, Contour(flat).Points); diff != "" {
		t.Errorf("single-row polygon should be unchanged (-expected +got):\n%s", diff)
	}

	dot := models.NewPolygon(testGrid, image.Point{1, 4})
	if diff := cmp.Diff(dot.Points, Contour(dot).Points); diff != "" {
		t.Errorf("single-vertex polygon should be unchanged (-expected +got):\n%s", diff)
	}

	if got := Contour(models.Polygon{}); len(got.Points) != 0 {
		t.Errorf("empty polygon should densify to nothing, got %v", got.Points)
	}
}

// TestDensifyMontage verifies scratch-backed densification leaves the source intact
func TestDensifyMontage(t *testing.T) {
	src := models.Montage{
		models.NewPolygon(testGrid, image.Point{0, 0}, image.Point{2, 0}, image.Point{2, 5}),
		models.NewPolygon(testGrid, image.Point{-1, 10}, image.Point{-4, 14}),
	}
	before := src.Clone()

	s := models.NewScratch()
	dense := DensifyMontage(src, s)

	if diff := cmp.Diff(before, src); diff != "" {
		t.Errorf("source montage was modified (-before +after):\n%s", diff)
	}
	if len(dense) != len(src) {
		t.Fatalf("expected %d polygons, got %d", len(src), len(dense))
	}
	for i := range src {
		if diff := cmp.Diff(Contour(src[i]).Points, dense[i].Points); diff != "" {
			t.Errorf("polygon %d mismatch (-expected +got):\n%s", i, diff)
		}
	}

	s.Reset()
	again := DensifyMontage(src, s)
	if len(again) != len(src) || len(again[1].Points) != DenseLen(src[1]) {
		t.Errorf("scratch reuse produced wrong montage: %v", again)
	}
}
