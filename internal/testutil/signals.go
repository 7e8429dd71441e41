package testutil

import (
	"math"
	"math/rand"
)

// DeterministicNoise generates white noise in [-amplitude, amplitude) with a
// fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// SpeckleTrace generates the intensity of one fluctuating speckle: the squared
// modulus of a complex Gaussian field whose correlation decays as exp(-1/tau)
// per frame. The returned trace has mean close to meanIntensity and an
// intensity autocorrelation close to 1 + exp(-2k/tau).
func SpeckleTrace(seed int64, meanIntensity, tau float64, length int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	rho := math.Exp(-1 / tau)
	innov := math.Sqrt((1 - rho*rho) / 2)

	re := rng.NormFloat64() / math.Sqrt2
	im := rng.NormFloat64() / math.Sqrt2

	out := make([]float64, length)
	for i := range out {
		out[i] = meanIntensity * (re*re + im*im)
		re = rho*re + innov*rng.NormFloat64()
		im = rho*im + innov*rng.NormFloat64()
	}
	return out
}

// Alternating returns a trace that switches between lo and hi every frame,
// starting with lo.
func Alternating(lo, hi float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		if i%2 == 0 {
			out[i] = lo
		} else {
			out[i] = hi
		}
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}
