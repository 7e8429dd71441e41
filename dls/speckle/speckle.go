package speckle

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-speckle/dsp/conv"
)

// MinLength is the shortest intensity trace a Speckle accepts.
const MinLength = 2

// Speckle is the intensity trace of one detector region together with its
// time average and autocorrelation functions. Derived values are recomputed
// in full whenever the trace changes.
type Speckle struct {
	intensity []float64
	derived

	rev uint64 // bumped on every successful Append
}

type derived struct {
	timeAvg float64
	iakf    []float64
	fakf    []float64
	fakfErr error
}

// New creates a speckle from an intensity trace ordered by frame.
// The trace is copied.
//
// It fails with ErrInvalidInput for traces shorter than MinLength or holding
// non-finite values, and with ErrDegenerateSequence for a zero time average.
// A constant trace is accepted, but its FAKF is undefined.
func New(intensity []float64) (*Speckle, error) {
	trace := make([]float64, len(intensity))
	copy(trace, intensity)

	d, err := analyze(trace)
	if err != nil {
		return nil, err
	}
	return &Speckle{intensity: trace, derived: d}, nil
}

// Append adds intensities to the end of the trace and recomputes all derived
// values. On error the speckle is left unchanged.
func (s *Speckle) Append(more []float64) error {
	if err := checkFinite(more); err != nil {
		return err
	}

	trace := make([]float64, 0, len(s.intensity)+len(more))
	trace = append(trace, s.intensity...)
	trace = append(trace, more...)

	d, err := analyze(trace)
	if err != nil {
		return err
	}
	s.intensity = trace
	s.derived = d
	s.rev++
	return nil
}

// AppendValues coerces v with Float64s and appends the result.
func (s *Speckle) AppendValues(v any) error {
	more, err := Float64s(v)
	if err != nil {
		return err
	}
	return s.Append(more)
}

// Len returns the number of frames in the trace.
func (s *Speckle) Len() int {
	return len(s.intensity)
}

// Intensity returns a copy of the intensity trace.
func (s *Speckle) Intensity() []float64 {
	return clone(s.intensity)
}

// TimeAverage returns the mean intensity of the trace.
func (s *Speckle) TimeAverage() float64 {
	return s.timeAvg
}

// IAKF returns a copy of the normalized intensity autocorrelation, indexed by lag.
func (s *Speckle) IAKF() []float64 {
	return clone(s.iakf)
}

// FAKF returns a copy of the field autocorrelation, indexed by lag.
// It fails with ErrDegenerateSequence for a constant trace.
func (s *Speckle) FAKF() ([]float64, error) {
	if s.fakfErr != nil {
		return nil, s.fakfErr
	}
	return clone(s.fakf), nil
}

// iakfAt returns IAKF[lag] without copying.
func (s *Speckle) iakfAt(lag int) float64 {
	return s.iakf[lag]
}

// String lists the intensity trace, one frame per line.
func (s *Speckle) String() string {
	var b strings.Builder
	for _, v := range s.intensity {
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		b.WriteByte('\n')
	}
	return b.String()
}

func analyze(trace []float64) (derived, error) {
	if len(trace) < MinLength {
		return derived{}, fmt.Errorf("%w: need at least %d samples, got %d", ErrInvalidInput, MinLength, len(trace))
	}
	if err := checkFinite(trace); err != nil {
		return derived{}, err
	}

	avg := stat.Mean(trace, nil)
	if avg == 0 {
		return derived{}, fmt.Errorf("%w: zero time average", ErrDegenerateSequence)
	}

	c, err := conv.XCorr(trace, trace, conv.ScaleUnbiased)
	if err != nil {
		return derived{}, fmt.Errorf("speckle: autocorrelation: %w", err)
	}

	iakf := clone(c.Positive())
	floats.Scale(1/(avg*avg), iakf)

	d := derived{timeAvg: avg, iakf: iakf}
	if isConstant(trace) {
		d.fakfErr = fmt.Errorf("%w: constant intensity trace", ErrDegenerateSequence)
		return d, nil
	}
	d.fakf, d.fakfErr = siegert(iakf)
	return d, nil
}

// siegert derives g1 from g2 as sqrt(|g2[k]-1| / |g2[0]-1|).
func siegert(g2 []float64) ([]float64, error) {
	denom := math.Abs(g2[0] - 1)
	if denom == 0 {
		return nil, fmt.Errorf("%w: IAKF[0] equals 1", ErrDegenerateSequence)
	}

	g1 := make([]float64, len(g2))
	for k, v := range g2 {
		g1[k] = math.Sqrt(math.Abs(v-1) / denom)
	}
	return g1, nil
}

func isConstant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func clone(xs []float64) []float64 {
	if xs == nil {
		return nil
	}
	out := make([]float64, len(xs))
	copy(out, xs)
	return out
}
