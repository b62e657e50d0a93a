package visualization

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// MaskStats summarizes how much of a mask is illuminated.
type MaskStats struct {
	// Lit counts pixels at full intensity.
	Lit int

	// Coverage is Lit as a fraction of all pixels.
	Coverage float64

	// Mean and StdDev describe intensities scaled to [0, 1].
	Mean   float64
	StdDev float64

	// Bounds encloses every non-zero pixel. It is empty for a dark mask.
	Bounds image.Rectangle
}

// Stats computes the illumination statistics of mask.
func Stats(mask *image.Gray) MaskStats {
	b := mask.Bounds()
	values := make([]float64, 0, b.Dx()*b.Dy())
	var s MaskStats
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := mask.GrayAt(x, y).Y
			values = append(values, float64(v)/0xff)
			if v == 0 {
				continue
			}
			if v == 0xff {
				s.Lit++
			}
			s.Bounds = s.Bounds.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	if len(values) == 0 {
		return s
	}
	s.Coverage = float64(s.Lit) / float64(len(values))
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	return s
}

// Agreement is the Pearson correlation between two equally sized masks, 1 for
// identical patterns. It is NaN when either mask is uniform.
func Agreement(a, b *image.Gray) float64 {
	return stat.Correlation(grayValues(a), grayValues(b), nil)
}

func grayValues(img *image.Gray) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, float64(img.GrayAt(x, y).Y))
		}
	}
	return out
}
