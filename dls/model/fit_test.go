package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(n int, step float64) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) * step
	}
	return xs
}

func TestFitSingleExpExact(t *testing.T) {
	want := SingleExp{A: 0.85, B: 120}
	xs := grid(40, 1e-4)
	ys := Curve(want, xs)

	got, err := FitSingleExp(xs, ys)
	require.NoError(t, err)
	assert.InEpsilon(t, want.A, got.A, 1e-9)
	assert.InEpsilon(t, want.B, got.B, 1e-9)

	res, err := Residual(got, xs, ys)
	require.NoError(t, err)
	assert.Less(t, res, 1e-9)
}

func TestFitSingleExpSkipsNonPositive(t *testing.T) {
	want := SingleExp{A: 1, B: 2}
	xs := grid(10, 0.1)
	ys := Curve(want, xs)
	ys[3] = 0
	ys[7] = -0.2

	got, err := FitSingleExp(xs, ys)
	require.NoError(t, err)
	assert.InEpsilon(t, 2.0, got.B, 1e-9)

	_, err = FitSingleExp([]float64{1, 2}, []float64{1, -1})
	require.ErrorIs(t, err, ErrInsufficientData)
	_, err = FitSingleExp([]float64{1}, []float64{1, 2})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestFitCumulant2Exact(t *testing.T) {
	want := Cumulant2{A: 0.95, Gamma: 300, Mu2: 40}
	xs := grid(30, 1e-4)
	ys := Curve(want, xs)

	got, err := FitCumulant2(xs, ys)
	require.NoError(t, err)
	assert.InEpsilon(t, want.A, got.A, 1e-7)
	assert.InEpsilon(t, want.Gamma, got.Gamma, 1e-6)
	assert.InEpsilon(t, want.Mu2, got.Mu2, 1e-3)

	_, err = FitCumulant2([]float64{0, 1}, []float64{1, 0.5})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestLeadingPositive(t *testing.T) {
	assert.Equal(t, 3, LeadingPositive([]float64{1, 0.5, 0.1, 0, 0.2}))
	assert.Equal(t, 2, LeadingPositive([]float64{1, 2}))
	assert.Equal(t, 0, LeadingPositive([]float64{math.NaN(), 1}))
	assert.Equal(t, 0, LeadingPositive(nil))
}

func TestResidualErrors(t *testing.T) {
	_, err := Residual(SingleExp{}, nil, nil)
	require.ErrorIs(t, err, ErrInsufficientData)
	_, err = Residual(SingleExp{}, []float64{1}, nil)
	require.ErrorIs(t, err, ErrLengthMismatch)
}
