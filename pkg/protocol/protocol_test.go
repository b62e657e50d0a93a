package protocol

import (
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wormillum/internal/models"
)

var testGrid = models.GridSize{Width: 11, Height: 20}

func square(grid models.GridSize, x0, y0, x1, y1 int) models.Polygon {
	return models.NewPolygon(grid,
		image.Point{x0, y0}, image.Point{x1, y0},
		image.Point{x1, y1}, image.Point{x0, y1})
}

func testProtocol(t *testing.T) *Protocol {
	p := New(testGrid)
	p.SetDescription("two steps")
	if _, err := p.AppendStep(models.Montage{square(testGrid, 0, 0, 5, 4)}); err != nil {
		t.Fatalf("Failed to append step: %v", err)
	}
	if _, err := p.AppendStep(models.Montage{
		square(testGrid, -5, 10, -1, 14),
		square(testGrid, 1, 15, 5, 19),
	}); err != nil {
		t.Fatalf("Failed to append step: %v", err)
	}
	return p
}

// TestStepOutOfRange verifies step index bounds
func TestStepOutOfRange(t *testing.T) {
	p := New(testGrid)
	if _, err := p.Step(0); !errors.Is(err, models.ErrStepIndexOutOfRange) {
		t.Errorf("empty protocol: expected ErrStepIndexOutOfRange, got %v", err)
	}

	if _, err := p.AppendStep(models.Montage{square(testGrid, 0, 0, 2, 2)}); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		step int
		ok   bool
	}{
		{-1, false},
		{0, true},
		{1, false},
	}
	for _, tc := range testCases {
		_, err := p.Step(tc.step)
		if tc.ok && err != nil {
			t.Errorf("step %d: unexpected error %v", tc.step, err)
		}
		if !tc.ok && !errors.Is(err, models.ErrStepIndexOutOfRange) {
			t.Errorf("step %d: expected ErrStepIndexOutOfRange, got %v", tc.step, err)
		}
	}

	scratch := models.NewScratch()
	if _, err := p.StepContour(3, scratch); !errors.Is(err, models.ErrStepIndexOutOfRange) {
		t.Errorf("StepContour: expected ErrStepIndexOutOfRange, got %v", err)
	}
}

// TestAppendStepCopies verifies a protocol owns its polygons
func TestAppendStepCopies(t *testing.T) {
	p := New(testGrid)
	poly := square(models.GridSize{}, 0, 0, 3, 3)

	idx, err := p.AppendStep(models.Montage{poly})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 0 {
		t.Errorf("expected index 0, got %d", idx)
	}

	poly.Points[0] = image.Point{9, 9}
	m, _ := p.Step(0)
	if m[0].Points[0] != (image.Point{0, 0}) {
		t.Errorf("protocol polygon changed with caller's slice: %v", m[0].Points[0])
	}
	if m[0].Grid != testGrid {
		t.Errorf("polygon with no grid should adopt %s, got %s", testGrid, m[0].Grid)
	}

	if err := p.AppendPolygon(0, square(testGrid, 1, 5, 4, 8)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m, _ := p.Step(0); len(m) != 2 {
		t.Errorf("expected 2 polygons after AppendPolygon, got %d", len(m))
	}
}

// TestAppendStepRejects verifies invalid polygons are refused
func TestAppendStepRejects(t *testing.T) {
	p := New(testGrid)

	if _, err := p.AppendStep(models.Montage{{Grid: testGrid}}); !errors.Is(err, models.ErrMalformedFile) {
		t.Errorf("empty polygon: expected ErrMalformedFile, got %v", err)
	}
	other := square(models.GridSize{Width: 21, Height: 100}, 0, 0, 1, 1)
	if _, err := p.AppendStep(models.Montage{other}); !errors.Is(err, models.ErrInvalidGridSize) {
		t.Errorf("foreign grid: expected ErrInvalidGridSize, got %v", err)
	}
	if err := p.AppendPolygon(0, square(testGrid, 0, 0, 1, 1)); !errors.Is(err, models.ErrStepIndexOutOfRange) {
		t.Errorf("AppendPolygon to missing step: expected ErrStepIndexOutOfRange, got %v", err)
	}
	if p.NumSteps() != 0 {
		t.Errorf("rejected steps should not be appended, got %d steps", p.NumSteps())
	}
}

// TestStepContour verifies densification leaves the sparse step intact
func TestStepContour(t *testing.T) {
	p := testProtocol(t)
	scratch := models.NewScratch()

	m, err := p.StepContour(1, scratch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("expected 2 contours, got %d", len(m))
	}
	// 5 rows down each vertical edge, horizontal edges add nothing
	if n := len(m[0].Points); n != 10 {
		t.Errorf("expected 10 contour points, got %d", n)
	}
	sparse, _ := p.Step(1)
	if n := len(sparse[0].Points); n != 4 {
		t.Errorf("sparse polygon should keep 4 vertices, got %d", n)
	}
}

// TestSummary verifies the step-by-step shape report
func TestSummary(t *testing.T) {
	p := testProtocol(t)
	p.SetFilename("plan.yml")

	expected := Summary{
		Filename:    "plan.yml",
		Description: "two steps",
		Width:       11,
		Height:      20,
		Steps: []StepSummary{
			{Polygons: 1, Points: []int{4}},
			{Polygons: 2, Points: []int{4, 4}},
		},
	}
	if diff := cmp.Diff(expected, p.Summary()); diff != "" {
		t.Errorf("summary mismatch (-expected +got):\n%s", diff)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}

	p.Steps[1][0].Grid = models.GridSize{Width: 3, Height: 3}
	if err := p.Validate(); !errors.Is(err, models.ErrInvalidGridSize) {
		t.Errorf("expected ErrInvalidGridSize, got %v", err)
	}

	p.Release()
	if p.NumSteps() != 0 {
		t.Errorf("expected no steps after Release, got %d", p.NumSteps())
	}
}
