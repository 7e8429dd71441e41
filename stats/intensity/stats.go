package intensity

import "math"

// Stats holds intensity statistics.
type Stats struct {
	Length   int
	Mean     float64
	Min      float64
	MinPos   int
	Max      float64
	MaxPos   int
	Variance float64 // population variance
	StdDev   float64
	Contrast float64 // StdDev / Mean, 0 for a zero mean
	Skewness float64
	Kurtosis float64 // excess kurtosis
}

// Calculate computes all statistics in a single pass using Welford's online
// algorithm for the higher-order moments.
func Calculate(xs []float64) Stats {
	var a Accumulator
	a.Update(xs)
	return a.Result()
}

// Contrast returns the speckle contrast sigma/mean of xs, or 0 when the mean
// is zero or xs is empty.
func Contrast(xs []float64) float64 {
	return Calculate(xs).Contrast
}

// Accumulator collects statistics incrementally across blocks of samples.
// Results are identical to Calculate on the concatenated input.
type Accumulator struct {
	n      int
	mean   float64
	m2     float64
	m3     float64
	m4     float64
	minVal float64
	minPos int
	maxVal float64
	maxPos int
}

// Update adds samples.
func (a *Accumulator) Update(samples []float64) {
	for _, x := range samples {
		if a.n == 0 || x < a.minVal {
			a.minVal, a.minPos = x, a.n
		}
		if a.n == 0 || x > a.maxVal {
			a.maxVal, a.maxPos = x, a.n
		}

		a.n++
		ni := float64(a.n)
		delta := x - a.mean
		deltaN := delta / ni
		deltaN2 := deltaN * deltaN
		term1 := delta * deltaN * float64(a.n-1)

		// M4 before M3 before M2.
		a.m4 += term1*deltaN2*(ni*ni-3*ni+3) + 6*deltaN2*a.m2 - 4*deltaN*a.m3
		a.m3 += term1*deltaN*(ni-2) - 3*deltaN*a.m2
		a.m2 += term1
		a.mean += deltaN
	}
}

// Len returns the number of samples seen.
func (a *Accumulator) Len() int {
	return a.n
}

// Result returns the statistics of the samples seen so far.
func (a *Accumulator) Result() Stats {
	if a.n == 0 {
		return Stats{}
	}

	nf := float64(a.n)
	variance := a.m2 / nf
	st := Stats{
		Length:   a.n,
		Mean:     a.mean,
		Min:      a.minVal,
		MinPos:   a.minPos,
		Max:      a.maxVal,
		MaxPos:   a.maxPos,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
	}
	if a.mean != 0 {
		st.Contrast = st.StdDev / math.Abs(a.mean)
	}
	if variance > 0 {
		st.Skewness = (a.m3 / nf) / (variance * st.StdDev)
		st.Kurtosis = (a.m4/nf)/(variance*variance) - 3
	}
	return st
}

// Reset clears the accumulator.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}
