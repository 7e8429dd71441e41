package speckle

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// State is the lifecycle stage of an Ensemble.
type State int

const (
	// StateEmpty means no speckles were added yet.
	StateEmpty State = iota
	// StatePopulated means speckles were added since the last Update.
	StatePopulated
	// StateUpdated means ensemble values reflect the current members and
	// none of them was appended to since.
	StateUpdated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateUpdated:
		return "updated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Ensemble is an ordered collection of speckles sharing one frame count, and
// the intensity-weighted averages computed from them.
type Ensemble struct {
	speckles []*Speckle
	state    State
	revs     []uint64 // member revisions seen by the last Update

	avg     float64
	iakf    []float64
	fakf    []float64
	fakfErr error

	timeKey TimeKey
}

// NewEnsemble returns an ensemble holding speckles, which may be empty.
// Nil speckles are skipped.
func NewEnsemble(speckles ...*Speckle) *Ensemble {
	e := &Ensemble{}
	for _, s := range speckles {
		if s != nil {
			e.speckles = append(e.speckles, s)
		}
	}
	if len(e.speckles) > 0 {
		e.state = StatePopulated
	}
	return e
}

// Add appends speckles to the ensemble. Ensemble values must be recomputed
// with Update afterwards.
func (e *Ensemble) Add(speckles ...*Speckle) error {
	for i, s := range speckles {
		if s == nil {
			return fmt.Errorf("%w: nil speckle at %d", ErrInvalidInput, i)
		}
	}
	if len(speckles) == 0 {
		return nil
	}

	e.speckles = append(e.speckles, speckles...)
	e.state = StatePopulated
	e.iakf, e.fakf, e.fakfErr, e.avg, e.revs = nil, nil, nil, 0, nil
	return nil
}

// Len returns the number of member speckles.
func (e *Ensemble) Len() int {
	return len(e.speckles)
}

// Speckles returns the member speckles in insertion order. The slice is a
// copy; the speckles are shared.
func (e *Ensemble) Speckles() []*Speckle {
	out := make([]*Speckle, len(e.speckles))
	copy(out, e.speckles)
	return out
}

// State reports the lifecycle stage. An updated ensemble whose members
// changed since Update reports StatePopulated.
func (e *Ensemble) State() State {
	if e.state == StateUpdated && !e.current() {
		return StatePopulated
	}
	return e.state
}

// current reports whether the derived values match the members.
func (e *Ensemble) current() bool {
	if e.state != StateUpdated || len(e.revs) != len(e.speckles) {
		return false
	}
	for i, s := range e.speckles {
		if s.rev != e.revs[i] {
			return false
		}
	}
	return true
}

// Frames returns the trace length shared by the members, or 0 if empty.
func (e *Ensemble) Frames() int {
	if len(e.speckles) == 0 {
		return 0
	}
	return e.speckles[0].Len()
}

// Update computes the ensemble average, IAKF and FAKF from the current
// members. Calling it again without membership changes yields identical
// results. Adding members or appending to a member invalidates the result
// until the next Update.
func (e *Ensemble) Update() error {
	if len(e.speckles) == 0 {
		return ErrEmptyEnsemble
	}

	n := e.speckles[0].Len()
	for i, s := range e.speckles {
		if s.Len() != n {
			return fmt.Errorf("%w: speckle %d has %d frames, want %d", ErrLengthMismatch, i, s.Len(), n)
		}
	}

	var sum float64
	for _, s := range e.speckles {
		sum += s.timeAvg
	}
	avg := sum / float64(len(e.speckles))
	if avg == 0 {
		return fmt.Errorf("%w: zero ensemble average", ErrDegenerateSequence)
	}

	iakf := make([]float64, n)
	for _, s := range e.speckles {
		floats.AddScaled(iakf, s.timeAvg*s.timeAvg, s.iakf)
	}
	floats.Scale(1/(float64(len(e.speckles))*avg*avg), iakf)

	revs := make([]uint64, len(e.speckles))
	for i, s := range e.speckles {
		revs[i] = s.rev
	}

	e.avg = avg
	e.iakf = iakf
	e.fakf, e.fakfErr = siegert(iakf)
	e.revs = revs
	e.state = StateUpdated
	return nil
}

// Average returns the mean of the member time averages.
func (e *Ensemble) Average() (float64, error) {
	if !e.current() {
		return 0, ErrNotUpdated
	}
	return e.avg, nil
}

// IAKF returns a copy of the ensemble intensity autocorrelation.
func (e *Ensemble) IAKF() ([]float64, error) {
	if !e.current() {
		return nil, ErrNotUpdated
	}
	return clone(e.iakf), nil
}

// FAKF returns a copy of the ensemble field autocorrelation.
func (e *Ensemble) FAKF() ([]float64, error) {
	if !e.current() {
		return nil, ErrNotUpdated
	}
	if e.fakfErr != nil {
		return nil, e.fakfErr
	}
	return clone(e.fakf), nil
}

// CreateTimeKey attaches a batched time key, see NewTimeKey. The frame count
// is taken from the first member.
func (e *Ensemble) CreateTimeKey(frameCounts []int, timeSteps []float64) error {
	if len(e.speckles) == 0 {
		return ErrEmptyEnsemble
	}
	key, err := NewTimeKey(frameCounts, timeSteps, e.Frames())
	if err != nil {
		return err
	}
	e.timeKey = key
	return nil
}

// SetDefaultTimeKey attaches the unit-spaced time key 1..N.
func (e *Ensemble) SetDefaultTimeKey() error {
	if len(e.speckles) == 0 {
		return ErrEmptyEnsemble
	}
	e.timeKey = DefaultTimeKey(e.Frames())
	return nil
}

// SetTimeKey attaches an existing time key, which must have one entry per frame.
func (e *Ensemble) SetTimeKey(key TimeKey) error {
	if len(e.speckles) == 0 {
		return ErrEmptyEnsemble
	}
	if key.Len() != e.Frames() {
		return fmt.Errorf("%w: time key has %d entries, sequence has %d", ErrLengthMismatch, key.Len(), e.Frames())
	}
	e.timeKey = key.clone()
	return nil
}

// TimeKey returns a copy of the attached time key.
func (e *Ensemble) TimeKey() (TimeKey, error) {
	if e.timeKey == nil {
		return nil, ErrNoTimeKey
	}
	return e.timeKey.clone(), nil
}
