package bodyspace

import (
	"fmt"
	"image"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"wormillum/internal/models"
)

// point is the on-disk form of a single image point.
type point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type estimateFile struct {
	Centerline []point `yaml:"Centerline"`
	LeftBound  []point `yaml:"LeftBound"`
	RightBound []point `yaml:"RightBound"`
}

// LoadEstimate reads a body estimate from a YAML file holding Centerline,
// LeftBound and RightBound lists of {x, y} pairs.
func LoadEstimate(path string) (*models.BodyEstimate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.FileError{Op: "read estimate", Path: path, Err: err}
	}
	var f estimateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrMalformedFile, path, err)
	}
	return &models.BodyEstimate{
		Centerline: fromFile(f.Centerline),
		LeftBound:  fromFile(f.LeftBound),
		RightBound: fromFile(f.RightBound),
	}, nil
}

// SaveEstimate writes est to path in the format read by LoadEstimate.
func SaveEstimate(est *models.BodyEstimate, path string) error {
	f := estimateFile{
		Centerline: toFile(est.Centerline),
		LeftBound:  toFile(est.LeftBound),
		RightBound: toFile(est.RightBound),
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("error marshaling estimate: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &models.FileError{Op: "write estimate", Path: path, Err: err}
	}
	return nil
}

func fromFile(pts []point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Point{X: p.X, Y: p.Y}
	}
	return out
}

func toFile(pts []image.Point) []point {
	out := make([]point, len(pts))
	for i, p := range pts {
		out[i] = point{X: p.X, Y: p.Y}
	}
	return out
}

// Shape describes a synthetic body: a sinusoidally bending rod whose width
// tapers towards head and tail.
type Shape struct {
	Head       image.Point // image position of row 0
	Heading    float64     // direction of the body axis, radians
	Length     float64     // head-to-tail length in pixels
	HalfWidth  float64     // half the body width at mid-body, pixels
	Amplitude  float64     // lateral bend amplitude, pixels
	Wavelength float64     // bend wavelength along the axis, pixels
	Phase      float64     // bend phase, radians
}

// Synthetic samples shape at rows evenly spaced head to tail and returns an
// index-aligned estimate. Left is the side reached by turning the local
// tangent a quarter turn counter-clockwise in image coordinates.
func Synthetic(shape Shape, rows int) (*models.BodyEstimate, error) {
	if rows < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, got %d", models.ErrInvalidGridSize, rows)
	}
	if shape.Length <= 0 {
		return nil, fmt.Errorf("%w: body length %g", models.ErrInvalidBodyEstimate, shape.Length)
	}
	s := floats.Span(make([]float64, rows), 0, shape.Length)

	axis := r2.Vec{X: math.Cos(shape.Heading), Y: math.Sin(shape.Heading)}
	normal := r2.Vec{X: -axis.Y, Y: axis.X}

	center := make([]r2.Vec, rows)
	for i, si := range s {
		off := 0.0
		if shape.Wavelength > 0 {
			off = shape.Amplitude * math.Sin(2*math.Pi*si/shape.Wavelength+shape.Phase)
		}
		center[i] = r2.Add(r2.Add(vec(shape.Head), r2.Scale(si, axis)), r2.Scale(off, normal))
	}

	est := &models.BodyEstimate{
		Centerline: make([]image.Point, rows),
		LeftBound:  make([]image.Point, rows),
		RightBound: make([]image.Point, rows),
	}
	for i := range center {
		prev, next := center[max(i-1, 0)], center[min(i+1, rows-1)]
		tangent := r2.Unit(r2.Sub(next, prev))
		left := r2.Vec{X: -tangent.Y, Y: tangent.X}

		taper := 0.3 + 0.7*math.Sin(math.Pi*s[i]/shape.Length)
		w := shape.HalfWidth * taper

		est.Centerline[i] = round(center[i])
		est.LeftBound[i] = round(r2.Add(center[i], r2.Scale(w, left)))
		est.RightBound[i] = round(r2.Sub(center[i], r2.Scale(w, left)))
	}
	return est, nil
}

func round(v r2.Vec) image.Point {
	return image.Point{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}
