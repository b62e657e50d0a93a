package visualization

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// TestStats tests illumination statistics
func TestStats(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 4, 4))
	s := Stats(mask)
	if s.Lit != 0 || s.Mean != 0 || !s.Bounds.Empty() {
		t.Errorf("dark mask: unexpected stats %+v", s)
	}

	for y := 1; y < 3; y++ {
		for x := 1; x < 3; x++ {
			mask.SetGray(x, y, color.Gray{Y: 0xff})
		}
	}
	s = Stats(mask)
	if s.Lit != 4 {
		t.Errorf("expected 4 lit pixels, got %d", s.Lit)
	}
	if math.Abs(s.Coverage-0.25) > 1e-12 {
		t.Errorf("expected coverage 0.25, got %f", s.Coverage)
	}
	if math.Abs(s.Mean-0.25) > 1e-12 {
		t.Errorf("expected mean 0.25, got %f", s.Mean)
	}
	if s.StdDev <= 0 {
		t.Errorf("expected positive standard deviation, got %f", s.StdDev)
	}
	if s.Bounds != image.Rect(1, 1, 3, 3) {
		t.Errorf("expected bounds (1,1)-(3,3), got %v", s.Bounds)
	}
}

// TestAgreement tests mask correlation
func TestAgreement(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 4, 4))
	a.SetGray(1, 1, color.Gray{Y: 0xff})
	a.SetGray(2, 1, color.Gray{Y: 0xff})

	if got := Agreement(a, a); math.Abs(got-1) > 1e-12 {
		t.Errorf("identical masks: expected 1, got %f", got)
	}

	b := image.NewGray(a.Bounds())
	copy(b.Pix, a.Pix)
	for i := range b.Pix {
		b.Pix[i] = 0xff - b.Pix[i]
	}
	if got := Agreement(a, b); math.Abs(got+1) > 1e-12 {
		t.Errorf("inverted masks: expected -1, got %f", got)
	}
}
