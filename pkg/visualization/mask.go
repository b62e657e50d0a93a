// Package visualization writes rendered masks to disk and builds diagnostic
// overlays of a mask against the body estimate it was rendered from.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"

	"wormillum/internal/models"
	"wormillum/pkg/protocol"
	"wormillum/pkg/render"
)

// SaveMask writes img to path, choosing the encoding from the extension:
// .png, .jpg/.jpeg or .fits.
func SaveMask(img image.Image, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".fits", ".fit":
	default:
		return fmt.Errorf("unsupported mask format %q (use .png, .jpg or .fits)", ext)
	}

	file, err := os.Create(path)
	if err != nil {
		return &models.FileError{Op: "save mask", Path: path, Err: err}
	}
	defer file.Close()

	switch ext {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 95})
	default:
		err = WriteFits(file, img, fitsio.Card{Name: "ORIGIN", Value: "wormillum"})
	}
	if err != nil {
		return fmt.Errorf("encode mask %s: %w", path, err)
	}
	return file.Close()
}

// WriteFits streams img to w as a single 16-bit FITS image. Gray levels are
// scaled to the full 16-bit range.
func WriteFits(w io.Writer, img image.Image, metadata ...fitsio.Card) error {
	metadata = append(metadata,
		fitsio.Card{Name: "BZERO", Value: 32768},
		fitsio.Card{Name: "BSCALE", Value: 1.0})

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()

	im := fitsio.NewImage(16, []int{width, height})
	defer im.Close()
	if err := im.Header().Append(metadata...); err != nil {
		return err
	}

	ints := make([]int16, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			ints[y*width+x] = int16(int32(g.Y) - 32768)
		}
	}
	if err := im.Write(ints); err != nil {
		return err
	}
	return fits.Write(im)
}

// Overlay blends mask, scaled by weight, with the estimate's centerline and
// boundaries drawn on top: centerline blue, left boundary green, right red.
func Overlay(mask *image.Gray, est *models.BodyEstimate, weight float64) *image.RGBA {
	b := mask.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := uint8(float64(mask.GrayAt(x, y).Y) * weight)
			out.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 0xff})
		}
	}
	if est == nil {
		return out
	}
	drawPoints(out, est.Centerline, color.RGBA{B: 0xff, A: 0xff})
	drawPoints(out, est.LeftBound, color.RGBA{G: 0xff, A: 0xff})
	drawPoints(out, est.RightBound, color.RGBA{R: 0xff, A: 0xff})
	return out
}

func drawPoints(img draw.Image, pts []image.Point, c color.Color) {
	b := img.Bounds()
	for _, pt := range pts {
		if pt.In(b) {
			img.Set(pt.X, pt.Y, c)
		}
	}
}

// SaveStepSequence renders every step of p against est into masks of the
// given size and writes them to outputDir as step_000.<ext>, step_001.<ext>...
func SaveStepSequence(p *protocol.Protocol, r *render.Renderer, est *models.BodyEstimate, size image.Point, outputDir, ext string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return &models.FileError{Op: "create directory", Path: outputDir, Err: err}
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	for step := 0; step < p.NumSteps(); step++ {
		mask := image.NewGray(image.Rectangle{Max: size})
		if err := r.Step(mask, p, step, est); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("step_%03d%s", step, ext))
		if err := SaveMask(mask, filename); err != nil {
			return err
		}
	}
	return nil
}

// SavePreviewSequence draws every step of p in body space, one
// width x height image per step, the way RectBody lays it out.
func SavePreviewSequence(p *protocol.Protocol, r *render.Renderer, outputDir, ext string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return &models.FileError{Op: "create directory", Path: outputDir, Err: err}
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	scratch := models.NewScratch()
	for step := 0; step < p.NumSteps(); step++ {
		m, err := p.StepContour(step, scratch)
		if err != nil {
			return err
		}
		img := image.NewGray(image.Rect(0, 0, p.GridSize.Width, p.GridSize.Height))
		r.RectBody(img, m)
		scratch.Reset()

		filename := filepath.Join(outputDir, fmt.Sprintf("preview_%03d%s", step, ext))
		if err := SaveMask(img, filename); err != nil {
			return err
		}
	}
	return nil
}
