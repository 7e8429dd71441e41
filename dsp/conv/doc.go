// Package conv provides linear convolution and scaled cross-correlation.
//
// Two convolution strategies are available:
//
//   - Direct convolution: O(N*M) time-domain convolution, used for kernels up to 64 samples
//   - Overlap-add (OLA): FFT-based block convolution for longer kernels
//
// Cross-correlation is computed as the linear convolution of x with the time
// reversal of y, so both strategies are shared.
//
// # Usage
//
//	c, err := conv.XCorr(x, y, conv.ScaleUnbiased)
//	acf := c.Positive() // lags 0..M-1
//
// XCorr mirrors the MATLAB xcorr contract: the shorter input is zero-padded to
// M = max(len(x), len(y)), the result has 2M-1 entries and Lags runs from
// -(M-1) to M-1.
//
// # Scaling
//
//   - ScaleNone: raw correlation sums
//   - ScaleBiased: every entry divided by M
//   - ScaleUnbiased: entry at lag k divided by M-|k|
//   - ScaleCoeff: every entry divided by sqrt(dot(x,x) * dot(y,y))
//
// Unbiased estimates use very few samples near |k| = M-1 and become noisy
// there; callers usually discard the outermost lags.
//
// # Precision
//
// The FFT path agrees with [Direct] to within ~1e-9 relative to the zero-lag
// energy. Use [CorrelateDirect] when exact summation order matters.
package conv
