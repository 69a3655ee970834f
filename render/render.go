// Package render converts grid state into RGBA pixels, one pixel per cell.
// It holds no GPU state; the viewer uploads the result to a texture.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/pthm-cable/boolnet/engine"
)

// Mode selects how a cell is coloured.
type Mode uint8

const (
	// Normal draws live cells white and dead cells black.
	Normal Mode = iota
	// Changes draws cells by recency: red when quiet, green scaled by
	// recent activity otherwise.
	Changes
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Changes:
		return "changes"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Palette colours.
var (
	Live  = color.RGBA{255, 255, 255, 255}
	Dead  = color.RGBA{0, 0, 0, 255}
	Quiet = color.RGBA{255, 0, 0, 255}
	// Diverged marks cells that differ between primary and shadow.
	Diverged = color.RGBA{0, 96, 255, 255}
)

// ErrSize is returned when buffers disagree in length.
var ErrSize = errors.New("render: buffer size mismatch")

// Frame is the state one image is drawn from.
type Frame struct {
	Cells   []uint8
	Recency []uint8
	Window  int
	Mode    Mode
	// Shadow, when non-nil, highlights every cell whose state differs.
	Shadow []uint8
}

func (f *Frame) validate(n int) error {
	if len(f.Cells) != n || len(f.Recency) != n {
		return fmt.Errorf("%w: %d pixels, %d cells, %d recency", ErrSize, n, len(f.Cells), len(f.Recency))
	}
	if f.Shadow != nil && len(f.Shadow) != n {
		return fmt.Errorf("%w: %d pixels, %d shadow cells", ErrSize, n, len(f.Shadow))
	}
	if f.Window < 1 {
		return fmt.Errorf("render: window %d must be positive", f.Window)
	}
	return nil
}

// Fill writes one pixel per cell into dst. p may be nil.
func Fill(p *engine.Pool, dst []color.RGBA, f Frame) error {
	if err := f.validate(len(dst)); err != nil {
		return err
	}
	return p.Run(len(dst), func(lo, hi int) {
		fillRange(dst, &f, lo, hi)
	})
}

func fillRange(dst []color.RGBA, f *Frame, lo, hi int) {
	for i := lo; i < hi; i++ {
		if f.Shadow != nil && f.Shadow[i] != f.Cells[i] {
			dst[i] = Diverged
			continue
		}
		switch f.Mode {
		case Changes:
			dst[i] = ChangeColor(int(f.Recency[i]), f.Window)
		default:
			if f.Cells[i] != 0 {
				dst[i] = Live
			} else {
				dst[i] = Dead
			}
		}
	}
}

// ChangeColor maps a recency counter to its Changes-mode colour. Any
// activity starts at half green and saturates at half the window.
func ChangeColor(recency, window int) color.RGBA {
	if recency <= 0 {
		return Quiet
	}
	g := 0.5 + float64(recency)/float64(window)
	if g > 1 {
		g = 1
	}
	return color.RGBA{0, uint8(g*255 + 0.5), 0, 255}
}

// Image draws a width x height frame into a new RGBA image.
func Image(p *engine.Pool, width, height int, f Frame) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	px := make([]color.RGBA, width*height)
	if err := Fill(p, px, f); err != nil {
		return nil, err
	}
	for i, c := range px {
		o := i * 4
		img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = c.R, c.G, c.B, c.A
	}
	return img, nil
}
