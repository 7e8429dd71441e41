// Package speckle computes intensity and field autocorrelation functions of
// multispeckle dynamic light scattering data.
//
// A [Speckle] wraps the intensity trace of one detector region. On
// construction it computes the time-averaged intensity, the normalized
// intensity autocorrelation (IAKF, g2)
//
//	IAKF[k] = <I(t) I(t+k)>_t / <I>^2
//
// using the unbiased estimator of [conv.XCorr], and the field autocorrelation
// (FAKF, g1) via the Siegert relation
//
//	FAKF[k] = sqrt(|IAKF[k] - 1| / |IAKF[0] - 1|)
//
// An [Ensemble] combines many speckles that share the same frame count.
// Its IAKF weights every member by its squared time average, so bright
// speckles contribute proportionally more:
//
//	IAKF_E[k] = sum_i(IAKF_i[k] * <I_i>^2) / (n * <I>_E^2)
//
// Ensemble accessors only return values after [Ensemble.Update]; before that
// they fail with [ErrNotUpdated].
//
// # Extremes
//
// [Ensemble.Extremes] ranks members with a [Ranker] in descending order and
// returns a new ensemble made of the top and/or bottom fraction, for example
// the fastest and slowest decaying speckles at a given lag.
//
// Speckles are shared by reference between an ensemble and the sub-ensembles
// derived from it; treat sub-ensembles as read-only views.
package speckle
