package conv

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
)

// Scale selects the normalization applied by XCorr.
type Scale int

const (
	// ScaleNone returns raw correlation sums.
	ScaleNone Scale = iota

	// ScaleBiased divides every entry by M.
	ScaleBiased

	// ScaleUnbiased divides the entry at lag k by M-|k|.
	ScaleUnbiased

	// ScaleCoeff divides every entry by sqrt(dot(x,x) * dot(y,y)).
	ScaleCoeff
)

// String returns the xcorr name of the scale.
func (s Scale) String() string {
	switch s {
	case ScaleNone:
		return "none"
	case ScaleBiased:
		return "biased"
	case ScaleUnbiased:
		return "unbiased"
	case ScaleCoeff:
		return "coeff"
	default:
		return fmt.Sprintf("Scale(%d)", int(s))
	}
}

// ParseScale maps an xcorr scale name to a Scale.
func ParseScale(name string) (Scale, error) {
	switch name {
	case "none", "":
		return ScaleNone, nil
	case "biased":
		return ScaleBiased, nil
	case "unbiased":
		return ScaleUnbiased, nil
	case "coeff", "coefficient":
		return ScaleCoeff, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidScale, name)
	}
}

// Correlation is the full scaled cross-correlation of two sequences.
// Values[i] belongs to lag Lags[i].
type Correlation struct {
	Values []float64
	Lags   []int
}

// MaxLag returns M-1, the largest absolute lag held by c.
func (c *Correlation) MaxLag() int {
	return (len(c.Values) - 1) / 2
}

// Positive returns the values for lags 0..M-1, reindexed from 0.
// The returned slice aliases c.Values.
func (c *Correlation) Positive() []float64 {
	return c.Values[c.MaxLag():]
}

// At returns the value at lag. ok is false if lag is outside the correlation.
func (c *Correlation) At(lag int) (v float64, ok bool) {
	idx := IndexFromLag(lag, c.MaxLag()+1)
	if idx < 0 || idx >= len(c.Values) {
		return 0, false
	}
	return c.Values[idx], true
}

// XCorr computes the full cross-correlation of x and y with the given scaling.
//
// The shorter input is zero-padded to M = max(len(x), len(y)); the result holds
// 2M-1 values for lags -(M-1)..M-1. The entry at lag k is sum_n x[n+k]*y[n].
func XCorr(x, y []float64, scale Scale) (*Correlation, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, ErrEmptyInput
	}
	if scale < ScaleNone || scale > ScaleCoeff {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}

	m := max(len(x), len(y))
	xp := zeroPad(x, m)
	yp := zeroPad(y, m)

	values, err := Correlate(xp, yp)
	if err != nil {
		return nil, err
	}

	if err := applyScale(values, xp, yp, scale); err != nil {
		return nil, err
	}

	lags := make([]int, 2*m-1)
	for i := range lags {
		lags[i] = LagFromIndex(i, m)
	}

	return &Correlation{Values: values, Lags: lags}, nil
}

func applyScale(values, x, y []float64, scale Scale) error {
	m := len(x)

	switch scale {
	case ScaleBiased:
		floats.Scale(1/float64(m), values)
	case ScaleUnbiased:
		vecmath.MulBlockInPlace(values, unbiasedWeights(m))
	case ScaleCoeff:
		energy := floats.Dot(x, x) * floats.Dot(y, y)
		if energy == 0 {
			return ErrZeroEnergy
		}
		floats.Scale(1/math.Sqrt(energy), values)
	}

	return nil
}

// unbiasedWeights returns 1/(M-|k|) for every lag of a length-M correlation.
func unbiasedWeights(m int) []float64 {
	w := make([]float64, 2*m-1)
	for i := range w {
		lag := LagFromIndex(i, m)
		if lag < 0 {
			lag = -lag
		}
		w[i] = 1 / float64(m-lag)
	}
	return w
}

func zeroPad(x []float64, n int) []float64 {
	if len(x) == n {
		return x
	}
	out := make([]float64, n)
	copy(out, x)
	return out
}

// Correlate computes the full unscaled cross-correlation of a and b.
// The result has length len(a) + len(b) - 1.
// Output index k corresponds to lag k - (len(b) - 1).
//
// Cross-correlation is convolution with the time-reversed second signal.
func Correlate(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}
	return Convolve(a, reversed(b))
}

// CorrelateDirect computes cross-correlation using direct summation only.
func CorrelateDirect(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}
	return Direct(a, reversed(b))
}

// AutoCorrelate computes the auto-correlation of signal a.
// The result has length 2*len(a) - 1.
// Output index k corresponds to lag k - (len(a) - 1).
func AutoCorrelate(a []float64) ([]float64, error) {
	return Correlate(a, a)
}

func reversed(b []float64) []float64 {
	out := make([]float64, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}
	return out
}

// LagFromIndex converts a correlation result index to a lag value.
// For a correlation with second signal length lenB, the lag at index i is
// i - (lenB - 1).
func LagFromIndex(index, lenB int) int {
	return index - (lenB - 1)
}

// IndexFromLag converts a lag value to a correlation result index.
func IndexFromLag(lag, lenB int) int {
	return lag + (lenB - 1)
}
