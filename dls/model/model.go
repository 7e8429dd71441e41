// Package model holds the correlation decay models used to interpret DLS
// autocorrelation curves and the Stokes-Einstein relations that turn a decay
// rate into a particle size.
package model

import (
	"fmt"
	"math"
)

// Model is a correlation decay curve.
type Model interface {
	Eval(x float64) float64
	Name() string
}

// SingleExp is g2-1 = A*exp(-2*B*x) for a monodisperse sample; B is the
// decay rate Gamma.
type SingleExp struct {
	A, B float64
}

func (m SingleExp) Eval(x float64) float64 {
	return m.A * math.Exp(-2*m.B*x)
}

func (SingleExp) Name() string {
	return "Single Exponential"
}

// DoubleExp is g2-1 = A1*exp(-2*B1*x) + A2*exp(-2*B2*x) for a bimodal sample.
type DoubleExp struct {
	A1, A2 float64
	B1, B2 float64
}

func (m DoubleExp) Eval(x float64) float64 {
	return m.A1*math.Exp(-2*m.B1*x) + m.A2*math.Exp(-2*m.B2*x)
}

func (DoubleExp) Name() string {
	return "Double Exponential"
}

// Cumulant2 is g1 = A*exp(-Gamma*(x - Mu2/2*x^2)).
type Cumulant2 struct {
	A, Gamma, Mu2 float64
}

func (m Cumulant2) Eval(x float64) float64 {
	return m.A * math.Exp(-m.Gamma*(x-m.Mu2/2*x*x))
}

func (Cumulant2) Name() string {
	return "2-Cumulant"
}

// Cumulant3 is g1 = A*exp(-Gamma*(x - Mu2/2*x^2 + Mu3/6*x^3)).
type Cumulant3 struct {
	A, Gamma, Mu2, Mu3 float64
}

func (m Cumulant3) Eval(x float64) float64 {
	return m.A * math.Exp(-m.Gamma*(x-m.Mu2/2*x*x+m.Mu3/6*x*x*x))
}

func (Cumulant3) Name() string {
	return "3-Cumulant"
}

// Curve evaluates m at every x.
func Curve(m Model, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = m.Eval(x)
	}
	return out
}

// String formats a model with its parameters.
func String(m Model) string {
	return fmt.Sprintf("%s %+v", m.Name(), m)
}
