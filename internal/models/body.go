package models

import (
	"fmt"
	"image"
)

// BodyEstimate is the per-frame body shape produced upstream by segmentation.
// All three sequences are in image coordinates, ordered head to tail, and
// index-aligned: element i of each describes body-grid row i.
type BodyEstimate struct {
	// Centerline traces the body's long axis.
	Centerline []image.Point `yaml:"Centerline" json:"centerline"`

	// LeftBound is the body edge on the left side of each row.
	LeftBound []image.Point `yaml:"LeftBound" json:"leftBound"`

	// RightBound is the body edge on the right side of each row.
	RightBound []image.Point `yaml:"RightBound" json:"rightBound"`
}

// Len returns the number of rows the estimate covers, which is the length of
// the shortest of its three sequences.
func (b *BodyEstimate) Len() int {
	if b == nil {
		return 0
	}
	n := len(b.Centerline)
	if len(b.LeftBound) < n {
		n = len(b.LeftBound)
	}
	if len(b.RightBound) < n {
		n = len(b.RightBound)
	}
	return n
}

// Validate checks that the estimate can drive a transform on grid: every
// sequence is non-empty, all three are the same length, and they cover at
// least grid.Height rows.
func (b *BodyEstimate) Validate(grid GridSize) error {
	if b == nil {
		return fmt.Errorf("%w: nil estimate", ErrInvalidBodyEstimate)
	}
	c, l, r := len(b.Centerline), len(b.LeftBound), len(b.RightBound)
	if c == 0 || l == 0 || r == 0 {
		return fmt.Errorf("%w: empty sequence (centerline=%d left=%d right=%d)",
			ErrInvalidBodyEstimate, c, l, r)
	}
	if c != l || c != r {
		return fmt.Errorf("%w: sequences not index-aligned (centerline=%d left=%d right=%d)",
			ErrInvalidBodyEstimate, c, l, r)
	}
	if c < grid.Height {
		return fmt.Errorf("%w: %d rows, grid needs %d", ErrInvalidBodyEstimate, c, grid.Height)
	}
	return nil
}
