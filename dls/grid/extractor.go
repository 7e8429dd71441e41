package grid

import (
	"errors"
	"fmt"

	vecmath "github.com/cwbudde/algo-vecmath"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-speckle/dls/speckle"
)

// Extractor accumulates per-block mean intensities over a frame sequence.
// It is not safe for concurrent use.
type Extractor struct {
	blockSize int
	cfg       Config

	width, height int
	rows, cols    int // retained block rows and columns
	frames        int
	cells         [][]float64
	skipped       []int

	sinkCells int // cells announced to the sink, 0 until Begin succeeds
}

// CellError reports the cell whose trace could not become a speckle.
type CellError struct {
	Cell int
	Err  error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("grid: cell %d: %v", e.Cell, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// NewExtractor returns an extractor for square blocks of blockSize pixels.
func NewExtractor(blockSize int, opts ...Option) (*Extractor, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}
	return &Extractor{blockSize: blockSize, cfg: ApplyOptions(opts...)}, nil
}

// BlockSize returns the block edge length in pixels.
func (x *Extractor) BlockSize() int {
	return x.blockSize
}

// Frames returns the number of frames added so far.
func (x *Extractor) Frames() int {
	return x.frames
}

// Cells returns the number of retained blocks per frame, or 0 before the
// first frame.
func (x *Extractor) Cells() int {
	return x.rows * x.cols
}

// Grid returns the retained block rows and columns.
func (x *Extractor) Grid() (rows, cols int) {
	return x.rows, x.cols
}

// Add appends one frame. The first frame fixes the geometry; later frames
// must match it. Add returns the block means of the frame, one per retained
// cell, and forwards the same vector to the configured sink. A failed Add
// leaves the extractor unchanged, except that a sink which has begun is not
// begun again and keeps its cell count.
func (x *Extractor) Add(f Frame) ([]float64, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	first := x.frames == 0
	if first {
		if err := x.setGeometry(f.Width, f.Height); err != nil {
			return nil, err
		}
	} else if f.Width != x.width || f.Height != x.height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrDimensionMismatch, f.Width, f.Height, x.width, x.height)
	}

	means := x.blockMeans(f)

	if sink := x.cfg.Sink; sink != nil {
		switch {
		case x.sinkCells == 0:
			if err := sink.Begin(len(means)); err != nil {
				x.resetGeometry()
				return nil, fmt.Errorf("grid: sink begin: %w", err)
			}
			x.sinkCells = len(means)
		case x.sinkCells != len(means):
			x.resetGeometry()
			return nil, fmt.Errorf("%w: sink began with %d cells, frame has %d", ErrDimensionMismatch, x.sinkCells, len(means))
		}
		if err := sink.Frame(x.frames, means); err != nil {
			if first {
				x.resetGeometry()
			}
			return nil, fmt.Errorf("grid: sink frame %d: %w", x.frames, err)
		}
	}

	if first {
		x.cells = make([][]float64, len(means))
	}
	for i, m := range means {
		x.cells[i] = append(x.cells[i], m)
	}
	x.frames++
	return means, nil
}

func (x *Extractor) setGeometry(w, h int) error {
	s := x.blockSize
	if w%s != 0 || h%s != 0 {
		return fmt.Errorf("%w: %dx%d, block size %d", ErrIndivisibleDimensions, w, h, s)
	}
	rows := h/s - x.cfg.SkipTop - x.cfg.SkipBottom
	cols := w/s - x.cfg.SkipLeft - x.cfg.SkipRight
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: %dx%d blocks minus skips", ErrEmptyGrid, h/s, w/s)
	}
	x.width, x.height = w, h
	x.rows, x.cols = rows, cols
	return nil
}

func (x *Extractor) resetGeometry() {
	x.width, x.height, x.rows, x.cols = 0, 0, 0, 0
}

func (x *Extractor) blockMeans(f Frame) []float64 {
	s := x.blockSize
	area := float64(s * s)
	means := make([]float64, 0, x.rows*x.cols)

	for br := x.cfg.SkipTop; br < x.cfg.SkipTop+x.rows; br++ {
		for bc := x.cfg.SkipLeft; bc < x.cfg.SkipLeft+x.cols; bc++ {
			var sum float64
			for y := br * s; y < (br+1)*s; y++ {
				off := y*f.Width + bc*s
				sum += vecmath.Sum(f.Pix[off : off+s])
			}
			means = append(means, sum/area)
		}
	}
	return means
}

// Trace returns a copy of the intensity trace of cell i.
func (x *Extractor) Trace(i int) ([]float64, error) {
	if i < 0 || i >= len(x.cells) {
		return nil, fmt.Errorf("%w: cell %d of %d", speckle.ErrIndexOutOfRange, i, len(x.cells))
	}
	out := make([]float64, len(x.cells[i]))
	copy(out, x.cells[i])
	return out, nil
}

// Speckles builds one speckle per retained cell, in cell order. Construction
// runs on up to Config.Workers goroutines; the first failure is returned as a
// *CellError. With SkipDegenerate, cells with a zero mean intensity are left
// out and listed by Skipped.
func (x *Extractor) Speckles() ([]*speckle.Speckle, error) {
	if x.frames == 0 {
		return nil, ErrNoFrames
	}

	built := make([]*speckle.Speckle, len(x.cells))
	var g errgroup.Group
	g.SetLimit(x.cfg.Workers)
	for i, trace := range x.cells {
		g.Go(func() error {
			s, err := speckle.New(trace)
			if err != nil {
				if x.cfg.SkipDegenerate && errors.Is(err, speckle.ErrDegenerateSequence) {
					return nil
				}
				return &CellError{Cell: i, Err: err}
			}
			built[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*speckle.Speckle, 0, len(built))
	x.skipped = x.skipped[:0]
	for i, s := range built {
		if s == nil {
			x.skipped = append(x.skipped, i)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Skipped returns the cells left out by the last Speckles call.
func (x *Extractor) Skipped() []int {
	out := make([]int, len(x.skipped))
	copy(out, x.skipped)
	return out
}

// Ensemble builds the speckles, collects them into an updated ensemble and
// assigns the default time key 1..frames.
func (x *Extractor) Ensemble() (*speckle.Ensemble, error) {
	sp, err := x.Speckles()
	if err != nil {
		return nil, err
	}

	e := speckle.NewEnsemble(sp...)
	if err := e.Update(); err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	if err := e.SetDefaultTimeKey(); err != nil {
		return nil, err
	}
	return e, nil
}

// Extract runs frames through a new extractor and returns the ensemble.
func Extract(frames []Frame, blockSize int, opts ...Option) (*speckle.Ensemble, error) {
	x, err := NewExtractor(blockSize, opts...)
	if err != nil {
		return nil, err
	}
	for i, f := range frames {
		if _, err := x.Add(f); err != nil {
			return nil, fmt.Errorf("grid: frame %d: %w", i, err)
		}
	}
	return x.Ensemble()
}
