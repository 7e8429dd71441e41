package model

import (
	"errors"
	"fmt"
	"math"
)

// Boltzmann is the Boltzmann constant in J/K.
const Boltzmann = 1.380649e-23

var ErrInvalidParameter = errors.New("model: invalid physical parameter")

// ScatteringVector returns q = 4*pi*n/lambda * sin(theta/2) in 1/m for a
// medium of refractive index n, vacuum wavelength lambda in m and scattering
// angle theta in radians.
func ScatteringVector(n, lambda, theta float64) (float64, error) {
	if !(n > 0) || !(lambda > 0) {
		return 0, fmt.Errorf("%w: n=%v lambda=%v", ErrInvalidParameter, n, lambda)
	}
	if !(theta > 0 && theta <= math.Pi) {
		return 0, fmt.Errorf("%w: theta=%v outside (0, pi]", ErrInvalidParameter, theta)
	}
	return 4 * math.Pi * n / lambda * math.Sin(theta/2), nil
}

// DiffusionCoefficient returns D = gamma/q^2 in m^2/s.
func DiffusionCoefficient(gamma, q float64) (float64, error) {
	if !(gamma > 0) || !(q > 0) {
		return 0, fmt.Errorf("%w: gamma=%v q=%v", ErrInvalidParameter, gamma, q)
	}
	return gamma / (q * q), nil
}

// HydrodynamicRadius returns the Stokes-Einstein radius
// kB*T / (6*pi*viscosity*D) in m. viscosity is dynamic, in Pa*s, and
// temperature is in K.
func HydrodynamicRadius(diffusion, viscosity, temperature float64) (float64, error) {
	if !(diffusion > 0) || !(viscosity > 0) || !(temperature > 0) {
		return 0, fmt.Errorf("%w: D=%v viscosity=%v T=%v", ErrInvalidParameter, diffusion, viscosity, temperature)
	}
	return Boltzmann * temperature / (6 * math.Pi * viscosity * diffusion), nil
}
