package grid

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Sink receives block means as frames are added. The intensities slice must
// not be retained or modified.
type Sink interface {
	// Begin is called once, before the first frame, with the number of cells.
	// After a failed Begin it is called again with the next frame.
	Begin(cells int) error
	// Frame is called for every frame with its zero-based index.
	Frame(index int, intensities []float64) error
}

// MultiSink fans out to every non-nil sink in order. When Begin fails for
// some sinks, a repeated Begin only reaches those that have not begun.
func MultiSink(sinks ...Sink) Sink {
	ms := &multiSink{}
	for _, s := range sinks {
		if s != nil {
			ms.sinks = append(ms.sinks, s)
		}
	}
	ms.begun = make([]bool, len(ms.sinks))
	return ms
}

type multiSink struct {
	sinks []Sink
	begun []bool
	cells int
}

func (ms *multiSink) Begin(cells int) error {
	var errs []error
	for i, s := range ms.sinks {
		if ms.begun[i] {
			if cells != ms.cells {
				errs = append(errs, fmt.Errorf("%w: sink %d began with %d cells, got %d", ErrDimensionMismatch, i, ms.cells, cells))
			}
			continue
		}
		if err := s.Begin(cells); err != nil {
			errs = append(errs, err)
			continue
		}
		ms.begun[i] = true
		ms.cells = cells
	}
	return errors.Join(errs...)
}

func (ms *multiSink) Frame(index int, intensities []float64) error {
	var errs []error
	for _, s := range ms.sinks {
		errs = append(errs, s.Frame(index, intensities))
	}
	return errors.Join(errs...)
}

// TableSink writes a tab-separated intensity table: a header
// "Im. No.\tSpeckle 0\tSpeckle 1..." followed by one row per frame starting
// with the one-based frame number.
type TableSink struct {
	w     *csv.Writer
	cells int
	row   []string
}

// NewTableSink returns a sink writing to w.
func NewTableSink(w io.Writer) *TableSink {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &TableSink{w: cw}
}

// Begin writes the header.
func (t *TableSink) Begin(cells int) error {
	t.cells = cells
	t.row = make([]string, cells+1)
	t.row[0] = "Im. No."
	for i := 0; i < cells; i++ {
		t.row[i+1] = "Speckle " + strconv.Itoa(i)
	}
	return t.write()
}

// Frame writes one row.
func (t *TableSink) Frame(index int, intensities []float64) error {
	if t.row == nil {
		return errors.New("grid: table sink used before Begin")
	}
	if len(intensities) != t.cells {
		return fmt.Errorf("grid: table sink got %d cells, want %d", len(intensities), t.cells)
	}
	t.row[0] = strconv.Itoa(index + 1)
	for i, v := range intensities {
		t.row[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return t.write()
}

func (t *TableSink) write() error {
	if err := t.w.Write(t.row); err != nil {
		return err
	}
	t.w.Flush()
	return t.w.Error()
}
