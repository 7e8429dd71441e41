package speckle

import (
	"fmt"
	"math"
)

// TimeKey maps a lag index to the physical time elapsed since the first frame.
type TimeKey []float64

// NewTimeKey builds a time key for n frames acquired in batches. Batch i holds
// frameCounts[i] frames spaced timeSteps[i] apart, so acquisitions that change
// frame rate mid-run get a non-uniform axis. The first entry equals the first
// step.
func NewTimeKey(frameCounts []int, timeSteps []float64, n int) (TimeKey, error) {
	if len(frameCounts) != len(timeSteps) {
		return nil, fmt.Errorf("%w: %d frame counts but %d time steps", ErrInvalidArguments, len(frameCounts), len(timeSteps))
	}

	total := 0
	for i, c := range frameCounts {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative frame count %d in batch %d", ErrInvalidArguments, c, i)
		}
		step := timeSteps[i]
		if step < 0 || math.IsNaN(step) || math.IsInf(step, 0) {
			return nil, fmt.Errorf("%w: invalid time step %v in batch %d", ErrInvalidArguments, step, i)
		}
		total += c
	}
	if total != n {
		return nil, fmt.Errorf("%w: batches hold %d frames, sequence has %d", ErrLengthMismatch, total, n)
	}

	key := make(TimeKey, 0, n)
	var t float64
	for i, c := range frameCounts {
		for j := 0; j < c; j++ {
			t += timeSteps[i]
			key = append(key, t)
		}
	}
	return key, nil
}

// DefaultTimeKey returns 1, 2, ..., n.
func DefaultTimeKey(n int) TimeKey {
	key := make(TimeKey, n)
	for i := range key {
		key[i] = float64(i + 1)
	}
	return key
}

// Len returns the number of entries.
func (k TimeKey) Len() int {
	return len(k)
}

func (k TimeKey) clone() TimeKey {
	if k == nil {
		return nil
	}
	out := make(TimeKey, len(k))
	copy(out, k)
	return out
}
