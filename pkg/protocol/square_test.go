package protocol

import (
	"image"
	"testing"

	"wormillum/internal/models"
)

// TestSliderToBody verifies slider positions centre on the centerline
func TestSliderToBody(t *testing.T) {
	testCases := []struct {
		pos      image.Point
		expected image.Point
	}{
		{image.Point{0, 3}, image.Point{-5, 3}},
		{image.Point{5, 3}, image.Point{0, 3}},
		{image.Point{10, 7}, image.Point{5, 7}},
	}
	for _, tc := range testCases {
		if got := SliderToBody(tc.pos, testGrid); got != tc.expected {
			t.Errorf("SliderToBody(%v): expected %v, got %v", tc.pos, tc.expected, got)
		}
	}
}

// TestSquareMontage verifies rectangle construction and row cropping
func TestSquareMontage(t *testing.T) {
	scratch := models.NewScratch()

	m := SquareMontage(image.Point{0, 10}, models.GridSize{Width: 2, Height: 3}, testGrid, scratch)
	if len(m) != 1 {
		t.Fatalf("expected one polygon, got %d", len(m))
	}
	lo, hi, ok := m[0].RowSpan()
	if !ok || lo != 7 || hi != 13 {
		t.Errorf("expected rows 7-13, got %d-%d (ok=%v)", lo, hi, ok)
	}
	b := m[0].Bounds()
	if b.Min.X != -2 || b.Max.X != 3 {
		t.Errorf("expected columns -2..2, got bounds %v", b)
	}

	// near the head the rectangle is cropped to row 1
	scratch.Reset()
	m = SquareMontage(image.Point{1, 0}, models.GridSize{Width: 1, Height: 4}, testGrid, scratch)
	lo, hi, _ = m[0].RowSpan()
	if lo != 1 || hi != 4 {
		t.Errorf("expected rows 1-4 after cropping, got %d-%d", lo, hi)
	}

	// and near the tail to row height-1
	scratch.Reset()
	m = SquareMontage(image.Point{1, 18}, models.GridSize{Width: 1, Height: 4}, testGrid, scratch)
	lo, hi, _ = m[0].RowSpan()
	if lo != 14 || hi != 19 {
		t.Errorf("expected rows 14-19 after cropping, got %d-%d", lo, hi)
	}
}

// TestSquareMontageZeroRadius verifies a zero radius yields nothing
func TestSquareMontageZeroRadius(t *testing.T) {
	scratch := models.NewScratch()
	for _, r := range []models.GridSize{{Width: 0, Height: 3}, {Width: 3, Height: 0}} {
		if m := SquareMontage(image.Point{0, 10}, r, testGrid, scratch); len(m) != 0 {
			t.Errorf("radius %v: expected empty montage, got %d polygons", r, len(m))
		}
	}
}
