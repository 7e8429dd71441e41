package speckle

import (
	"fmt"
	"math"
	"sort"
)

// Rank is the value a Ranker assigns to a speckle: either a single scalar or
// a per-lag sequence from which one component is selected.
type Rank struct {
	scalar   float64
	sequence []float64
	isSeq    bool
}

// Scalar returns a scalar rank.
func Scalar(v float64) Rank {
	return Rank{scalar: v}
}

// Sequence returns a per-lag rank.
func Sequence(vs []float64) Rank {
	return Rank{sequence: vs, isSeq: true}
}

// IsSequence reports whether r holds a per-lag sequence.
func (r Rank) IsSequence() bool {
	return r.isSeq
}

// Value resolves r at lag. Scalar ranks ignore lag.
func (r Rank) Value(lag int) (float64, error) {
	if !r.isSeq {
		return r.scalar, nil
	}
	if lag < 0 || lag >= len(r.sequence) {
		return 0, fmt.Errorf("%w: lag %d, sequence length %d", ErrIndexOutOfRange, lag, len(r.sequence))
	}
	return r.sequence[lag], nil
}

// Ranker assigns a rank to a speckle.
type Ranker interface {
	Rank(s *Speckle) (Rank, error)
}

// RankFunc adapts a function to the Ranker interface.
type RankFunc func(s *Speckle) (Rank, error)

// Rank calls f(s).
func (f RankFunc) Rank(s *Speckle) (Rank, error) {
	return f(s)
}

// Built-in rankers.
var (
	// ByIAKF ranks by the intensity autocorrelation at the selected lag;
	// high values are slowly decaying speckles.
	ByIAKF Ranker = RankFunc(func(s *Speckle) (Rank, error) {
		return Sequence(s.iakf), nil
	})

	// ByFAKF ranks by the field autocorrelation at the selected lag.
	ByFAKF Ranker = RankFunc(func(s *Speckle) (Rank, error) {
		if s.fakfErr != nil {
			return Rank{}, s.fakfErr
		}
		return Sequence(s.fakf), nil
	})

	// ByIntensity ranks by the raw intensity in the selected frame.
	ByIntensity Ranker = RankFunc(func(s *Speckle) (Rank, error) {
		return Sequence(s.intensity), nil
	})

	// ByTimeAverage ranks by mean intensity.
	ByTimeAverage Ranker = RankFunc(func(s *Speckle) (Rank, error) {
		return Scalar(s.timeAvg), nil
	})
)

// Side selects which end of the ranking Extremes keeps.
type Side int

const (
	// SideBest keeps the highest ranked speckles.
	SideBest Side = 1 << iota
	// SideWorst keeps the lowest ranked speckles.
	SideWorst

	// SideBoth keeps both ends.
	SideBoth = SideBest | SideWorst
)

// Extremes ranks the members by rank at lag in descending order and returns
// a new, updated ensemble holding the top and/or bottom ceil(fraction*n)
// speckles. A speckle selected from both ends appears once. Members are
// shared with e and the time key is copied.
//
// Ties keep insertion order.
func (e *Ensemble) Extremes(fraction float64, lag int, side Side, rank Ranker) (*Ensemble, error) {
	if side&SideBoth == 0 || side&^SideBoth != 0 {
		return nil, fmt.Errorf("%w: neither best nor worst selected", ErrInvalidArguments)
	}
	if !(fraction > 0 && fraction <= 1) {
		return nil, fmt.Errorf("%w: fraction %v outside (0, 1]", ErrInvalidArguments, fraction)
	}
	if rank == nil {
		return nil, fmt.Errorf("%w: nil ranker", ErrInvalidArguments)
	}
	if len(e.speckles) == 0 {
		return nil, ErrEmptyEnsemble
	}
	for i, s := range e.speckles {
		if lag < 0 || lag >= s.Len() {
			return nil, fmt.Errorf("%w: lag %d, speckle %d has %d frames", ErrIndexOutOfRange, lag, i, s.Len())
		}
	}

	type ranked struct {
		idx   int
		value float64
	}
	order := make([]ranked, len(e.speckles))
	for i, s := range e.speckles {
		r, err := rank.Rank(s)
		if err != nil {
			return nil, fmt.Errorf("speckle: rank speckle %d: %w", i, err)
		}
		v, err := r.Value(lag)
		if err != nil {
			return nil, err
		}
		order[i] = ranked{idx: i, value: v}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return order[a].value > order[b].value
	})

	n := len(order)
	k := extremeCount(fraction, n)

	picked := make([]bool, n)
	var members []*Speckle
	take := func(r ranked) {
		if !picked[r.idx] {
			picked[r.idx] = true
			members = append(members, e.speckles[r.idx])
		}
	}
	if side&SideBest != 0 {
		for _, r := range order[:k] {
			take(r)
		}
	}
	if side&SideWorst != 0 {
		for _, r := range order[n-k:] {
			take(r)
		}
	}

	sub := NewEnsemble(members...)
	if err := sub.Update(); err != nil {
		return nil, err
	}
	sub.timeKey = e.timeKey.clone()
	return sub, nil
}

// extremeCount returns ceil(fraction*n), ignoring float noise just above an
// integer, clamped to [1, n].
func extremeCount(fraction float64, n int) int {
	k := int(math.Ceil(fraction*float64(n) - 1e-9))
	return max(1, min(k, n))
}
