package grid

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	ErrInvalidFrame          = errors.New("grid: invalid frame")
	ErrInvalidBlockSize      = errors.New("grid: block size must be positive")
	ErrIndivisibleDimensions = errors.New("grid: frame dimensions not divisible by block size")
	ErrDimensionMismatch     = errors.New("grid: frame dimensions differ from first frame")
	ErrEmptyGrid             = errors.New("grid: no blocks left after skipping edges")
	ErrNoFrames              = errors.New("grid: no frames added")
)

// Frame is a single-channel image stored row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []float64
}

// NewFrame wraps pix as a width x height frame. pix is not copied.
func NewFrame(width, height int, pix []float64) (Frame, error) {
	f := Frame{Width: width, Height: height, Pix: pix}
	if err := f.validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (f Frame) validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height {
		return fmt.Errorf("%w: %d samples for %dx%d", ErrInvalidFrame, len(f.Pix), f.Width, f.Height)
	}
	return nil
}

// At returns the sample at column x, row y.
func (f Frame) At(x, y int) float64 {
	return f.Pix[y*f.Width+x]
}

// FromImage converts img to 16-bit luminance.
func FromImage(img image.Image) (Frame, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Frame{}, fmt.Errorf("%w: empty image", ErrInvalidFrame)
	}

	pix := make([]float64, w*h)
	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pix[y*w+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+w]
			for x, v := range row {
				pix[y*w+x] = float64(uint16(v) * 0x101)
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				pix[y*w+x] = float64(g.Y)
			}
		}
	}
	return Frame{Width: w, Height: h, Pix: pix}, nil
}
