package models

import "image"

const scratchChunk = 1024

// Scratch is a reusable allocation context for montages built transiently
// while interpolating or rendering a frame. Point storage is carved from a
// chunk that survives Reset, so steady-state per-frame work does not allocate.
//
// A Scratch must not be used by more than one render at a time. Slices handed
// out before Reset must not be used after it.
type Scratch struct {
	chunk   []image.Point
	retired int // capacity of chunks outgrown since the last Reset
	montage Montage
	lent    bool
}

// NewScratch returns an empty scratch context.
func NewScratch() *Scratch {
	return &Scratch{}
}

// Points returns a zero-length slice with capacity for n points carved from
// the scratch's storage.
func (s *Scratch) Points(n int) []image.Point {
	if cap(s.chunk)-len(s.chunk) < n {
		s.grow(n)
	}
	start := len(s.chunk)
	s.chunk = s.chunk[:start+n]
	return s.chunk[start:start:start+n]
}

func (s *Scratch) grow(n int) {
	s.retired += cap(s.chunk)
	size := 2 * cap(s.chunk)
	if size < scratchChunk {
		size = scratchChunk
	}
	if size < n {
		size = n
	}
	s.chunk = make([]image.Point, 0, size)
}

// Montage returns an empty montage backed by the scratch's reusable buffer.
// The buffer is lent once per cycle; later calls before Reset return nil so
// that two montages never share a backing array.
func (s *Scratch) Montage() Montage {
	if s.lent {
		return nil
	}
	s.lent = true
	return s.montage[:0]
}

// Keep records m as the scratch's montage so its backing array is reused
// after the next Reset.
func (s *Scratch) Keep(m Montage) {
	if cap(m) > cap(s.montage) {
		s.montage = m[:0]
	}
}

// Reset releases everything handed out since the last Reset. If the last
// cycle outgrew the current chunk, a single chunk large enough for the whole
// cycle replaces it.
func (s *Scratch) Reset() {
	if s.retired > 0 {
		s.chunk = make([]image.Point, 0, s.retired+cap(s.chunk))
		s.retired = 0
	} else {
		s.chunk = s.chunk[:0]
	}
	full := s.montage[:cap(s.montage)]
	for i := range full {
		full[i] = Polygon{}
	}
	s.montage = s.montage[:0]
	s.lent = false
}

// Cap returns the number of points the scratch can hand out before it next
// allocates.
func (s *Scratch) Cap() int {
	return cap(s.chunk) - len(s.chunk)
}
