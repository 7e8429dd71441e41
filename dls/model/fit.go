package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInsufficientData = errors.New("model: not enough positive samples to fit")
	ErrLengthMismatch   = errors.New("model: x and y lengths differ")
)

// logPoints returns the samples with finite, positive y and their logarithm.
func logPoints(xs, ys []float64) (px, ly []float64, err error) {
	if len(xs) != len(ys) {
		return nil, nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xs), len(ys))
	}
	for i, y := range ys {
		if y > 0 && !math.IsInf(y, 1) && !math.IsNaN(xs[i]) {
			px = append(px, xs[i])
			ly = append(ly, math.Log(y))
		}
	}
	return px, ly, nil
}

// LeadingPositive returns the prefix of ys before the first value that is
// not positive. Correlation tails are dominated by noise once they reach
// zero.
func LeadingPositive(ys []float64) int {
	for i, y := range ys {
		if !(y > 0) {
			return i
		}
	}
	return len(ys)
}

// FitSingleExp fits SingleExp to (xs, ys) by linear regression of ln(y).
// Non-positive samples are ignored.
func FitSingleExp(xs, ys []float64) (SingleExp, error) {
	px, ly, err := logPoints(xs, ys)
	if err != nil {
		return SingleExp{}, err
	}
	if len(px) < 2 {
		return SingleExp{}, fmt.Errorf("%w: %d points", ErrInsufficientData, len(px))
	}
	alpha, beta := stat.LinearRegression(px, ly, nil, false)
	return SingleExp{A: math.Exp(alpha), B: -beta / 2}, nil
}

// FitCumulant2 fits Cumulant2 to (xs, ys) by least squares on
// ln(y) = ln(A) - Gamma*x + Gamma*Mu2/2*x^2. Non-positive samples are
// ignored.
func FitCumulant2(xs, ys []float64) (Cumulant2, error) {
	px, ly, err := logPoints(xs, ys)
	if err != nil {
		return Cumulant2{}, err
	}
	if len(px) < 3 {
		return Cumulant2{}, fmt.Errorf("%w: %d points", ErrInsufficientData, len(px))
	}

	design := mat.NewDense(len(px), 3, nil)
	for i, x := range px {
		design.Set(i, 0, 1)
		design.Set(i, 1, x)
		design.Set(i, 2, x*x)
	}
	var c mat.VecDense
	if err := c.SolveVec(design, mat.NewVecDense(len(ly), ly)); err != nil {
		return Cumulant2{}, fmt.Errorf("model: cumulant fit: %w", err)
	}

	gamma := -c.AtVec(1)
	m := Cumulant2{A: math.Exp(c.AtVec(0)), Gamma: gamma}
	if gamma != 0 {
		m.Mu2 = 2 * c.AtVec(2) / gamma
	}
	return m, nil
}

// Residual returns the root mean square deviation of m from (xs, ys).
func Residual(m Model, xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(xs), len(ys))
	}
	if len(xs) == 0 {
		return 0, ErrInsufficientData
	}
	var sum float64
	for i, x := range xs {
		d := m.Eval(x) - ys[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs))), nil
}
