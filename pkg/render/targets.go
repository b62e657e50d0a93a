package render

import (
	"fmt"
	"image"

	"wormillum/internal/models"
	"wormillum/pkg/protocol"
)

// Target names an output mask the experiment loop renders into.
type Target int

const (
	// TargetCamera is the mask registered to the camera image, used for
	// display and recording.
	TargetCamera Target = iota
	// TargetProjector is the mask registered to the light engine's pixels.
	TargetProjector
)

func (t Target) String() string {
	switch t {
	case TargetCamera:
		return "camera"
	case TargetProjector:
		return "projector"
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// ParseTarget returns the target named s.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "camera":
		return TargetCamera, nil
	case "projector":
		return TargetProjector, nil
	}
	return 0, fmt.Errorf("unknown render target %q", s)
}

// Frames holds one pre-sized mask per render target.
type Frames struct {
	frames map[Target]*image.Gray
	tmp    map[Target]*image.Gray
}

// NewFrames allocates a size.X x size.Y mask for each target.
func NewFrames(size image.Point, targets ...Target) *Frames {
	f := &Frames{
		frames: make(map[Target]*image.Gray, len(targets)),
		tmp:    make(map[Target]*image.Gray, len(targets)),
	}
	for _, t := range targets {
		f.frames[t] = image.NewGray(image.Rectangle{Max: size})
		f.tmp[t] = image.NewGray(image.Rectangle{Max: size})
	}
	return f
}

// Get returns the mask for t.
func (f *Frames) Get(t Target) (*image.Gray, error) {
	img, ok := f.frames[t]
	if !ok {
		return nil, fmt.Errorf("no frame for render target %s", t)
	}
	return img, nil
}

// Clear resets every mask to background.
func (f *Frames) Clear() {
	for _, img := range f.frames {
		clear(img.Pix)
	}
}

// RenderStep clears the mask for t and renders step of p into it, using the
// estimate expressed in that target's coordinates. Rendering goes through a
// per-target buffer allocated once, so on error the mask keeps its last frame.
func (f *Frames) RenderStep(r *Renderer, t Target, p *protocol.Protocol, step int, est *models.BodyEstimate) error {
	img, err := f.Get(t)
	if err != nil {
		return err
	}
	tmp := f.tmp[t]
	clear(tmp.Pix)
	if err := r.Step(tmp, p, step, est); err != nil {
		return fmt.Errorf("render %s: %w", t, err)
	}
	copy(img.Pix, tmp.Pix)
	return nil
}
