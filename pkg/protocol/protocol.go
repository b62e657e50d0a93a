// Package protocol holds multi-step illumination plans expressed in body-grid
// coordinates and their YAML on-disk form.
//
// A Protocol owns its steps outright: each step is a Montage of Polygons and
// every polygon is tagged with the protocol's grid size. Dropping the last
// reference to a Protocol (or calling Release) frees everything it holds.
package protocol

import (
	"fmt"

	"wormillum/internal/models"
	"wormillum/pkg/interpolation"
)

// Protocol is an ordered illumination plan.
type Protocol struct {
	// Filename is the path the protocol was loaded from or is saved to.
	Filename string

	// Description is free text for the experimenter.
	Description string

	// GridSize is the body-grid resolution every polygon is authored against.
	GridSize models.GridSize

	// Steps are the montages illuminated in order, one per step.
	Steps []models.Montage
}

// New creates an empty protocol on grid.
func New(grid models.GridSize) *Protocol {
	return &Protocol{GridSize: grid}
}

// SetFilename sets the protocol's filename.
func (p *Protocol) SetFilename(name string) { p.Filename = name }

// SetDescription sets the protocol's description.
func (p *Protocol) SetDescription(desc string) { p.Description = desc }

// NumSteps returns the number of steps.
func (p *Protocol) NumSteps() int { return len(p.Steps) }

// AppendStep appends a copy of m as a new step and returns its index. Every
// polygon must be non-empty and authored on the protocol's grid; a polygon
// with a zero grid is adopted onto it.
func (p *Protocol) AppendStep(m models.Montage) (int, error) {
	step := make(models.Montage, 0, len(m))
	for i, poly := range m {
		own, err := p.adopt(poly)
		if err != nil {
			return -1, fmt.Errorf("step %d polygon %d: %w", len(p.Steps), i, err)
		}
		step = append(step, own)
	}
	p.Steps = append(p.Steps, step)
	return len(p.Steps) - 1, nil
}

// AppendPolygon appends a copy of poly to the montage of step.
func (p *Protocol) AppendPolygon(step int, poly models.Polygon) error {
	if err := p.checkStep(step); err != nil {
		return err
	}
	own, err := p.adopt(poly)
	if err != nil {
		return fmt.Errorf("step %d polygon %d: %w", step, len(p.Steps[step]), err)
	}
	p.Steps[step].Add(own)
	return nil
}

func (p *Protocol) adopt(poly models.Polygon) (models.Polygon, error) {
	if len(poly.Points) == 0 {
		return models.Polygon{}, fmt.Errorf("%w: polygon has no vertices", models.ErrMalformedFile)
	}
	if poly.Grid != (models.GridSize{}) && poly.Grid != p.GridSize {
		return models.Polygon{}, fmt.Errorf("%w: polygon authored on %s, protocol uses %s",
			models.ErrInvalidGridSize, poly.Grid, p.GridSize)
	}
	own := poly.Clone()
	own.Grid = p.GridSize
	return own, nil
}

func (p *Protocol) checkStep(step int) error {
	if step < 0 || step >= len(p.Steps) {
		return fmt.Errorf("%w: step %d, protocol has %d", models.ErrStepIndexOutOfRange, step, len(p.Steps))
	}
	return nil
}

// Step returns the sparse montage for step. The montage is the protocol's own
// storage and must not be modified.
func (p *Protocol) Step(step int) (models.Montage, error) {
	if err := p.checkStep(step); err != nil {
		return nil, err
	}
	return p.Steps[step], nil
}

// StepContour returns the montage for step with every polygon densified into
// a contour. The contours are carved from s and are valid until s is reset;
// the protocol's own polygons are not touched.
func (p *Protocol) StepContour(step int, s *models.Scratch) (models.Montage, error) {
	m, err := p.Step(step)
	if err != nil {
		return nil, err
	}
	return interpolation.DensifyMontage(m, s), nil
}

// Release drops every step and polygon the protocol owns.
func (p *Protocol) Release() {
	p.Steps = nil
}

// Validate checks that every polygon is non-empty and shares the protocol's
// grid, and that the grid itself is usable.
func (p *Protocol) Validate() error {
	if !p.GridSize.Valid() {
		return fmt.Errorf("%w: %s", models.ErrInvalidGridSize, p.GridSize)
	}
	for i, m := range p.Steps {
		for j, poly := range m {
			if len(poly.Points) == 0 {
				return fmt.Errorf("%w: step %d polygon %d has no vertices", models.ErrMalformedFile, i, j)
			}
			if poly.Grid != p.GridSize {
				return fmt.Errorf("%w: step %d polygon %d authored on %s, protocol uses %s",
					models.ErrInvalidGridSize, i, j, poly.Grid, p.GridSize)
			}
		}
	}
	return nil
}

// Summary describes a protocol's shape without its coordinates.
type Summary struct {
	Filename    string        `json:"filename"`
	Description string        `json:"description"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Steps       []StepSummary `json:"steps"`
}

// StepSummary counts the polygons and vertices of one step.
type StepSummary struct {
	Polygons int   `json:"polygons"`
	Points   []int `json:"points"`
}

// Summary returns the step-by-step shape of the protocol.
func (p *Protocol) Summary() Summary {
	s := Summary{
		Filename:    p.Filename,
		Description: p.Description,
		Width:       p.GridSize.Width,
		Height:      p.GridSize.Height,
		Steps:       make([]StepSummary, len(p.Steps)),
	}
	for i, m := range p.Steps {
		s.Steps[i].Polygons = len(m)
		s.Steps[i].Points = make([]int, len(m))
		for j, poly := range m {
			s.Steps[i].Points[j] = len(poly.Points)
		}
	}
	return s
}
