// Package intensity computes first-order statistics of speckle intensities.
//
// The speckle contrast K = sigma/mean characterizes how far an intensity
// distribution is from fully developed speckle, for which the intensity is
// exponentially distributed and K = 1. Applied to one speckle's trace it
// gives the temporal contrast (K^2 equals the biased IAKF[0]-1); applied to
// the block means of one frame it gives the spatial contrast of that frame.
package intensity
