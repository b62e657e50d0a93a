package models

import (
	"errors"
	"fmt"
)

// Error kinds reported by the engine. Match with errors.Is.
var (
	ErrFileOpen             = errors.New("cannot open file")
	ErrMalformedFile        = errors.New("malformed protocol file")
	ErrStepIndexOutOfRange  = errors.New("step index out of range")
	ErrPointIndexOutOfRange = errors.New("point index out of range")
	ErrInvalidBodyEstimate  = errors.New("invalid body estimate")
	ErrInvalidGridSize      = errors.New("invalid grid size")
)

// FileError records a failed file operation and the path it was attempted on.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() []error {
	return []error{ErrFileOpen, e.Err}
}
