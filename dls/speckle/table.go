package speckle

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Stats summarizes an updated ensemble.
type Stats struct {
	Speckles int
	Frames   int
	Average  float64
	IAKF0    float64 // ensemble IAKF at lag 0
	IAKF1    float64 // ensemble IAKF at lag 1
}

// Stats returns a summary of the ensemble. It fails with ErrNotUpdated
// unless the ensemble is current.
func (e *Ensemble) Stats() (Stats, error) {
	if !e.current() {
		return Stats{}, ErrNotUpdated
	}
	st := Stats{
		Speckles: len(e.speckles),
		Frames:   len(e.iakf),
		Average:  e.avg,
		IAKF0:    e.iakf[0],
	}
	if len(e.iakf) > 1 {
		st.IAKF1 = e.iakf[1]
	}
	return st, nil
}

// String implements fmt.Stringer.
func (st Stats) String() string {
	return fmt.Sprintf("speckles=%d frames=%d avg=%.6g iakf[0]=%.6g iakf[1]=%.6g",
		st.Speckles, st.Frames, st.Average, st.IAKF0, st.IAKF1)
}

// WriteTable writes the ensemble FAKF and IAKF against the time key as a
// tab-separated table with the header "time\tFAKF\tIAKF". It needs an
// updated ensemble with a time key. Rows with an undefined FAKF hold NaN.
func (e *Ensemble) WriteTable(w io.Writer) error {
	if !e.current() {
		return ErrNotUpdated
	}
	if e.timeKey == nil {
		return ErrNoTimeKey
	}
	if len(e.timeKey) != len(e.iakf) {
		return fmt.Errorf("%w: time key has %d entries, IAKF has %d", ErrLengthMismatch, len(e.timeKey), len(e.iakf))
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"time", "FAKF", "IAKF"}); err != nil {
		return err
	}

	row := make([]string, 3)
	for i, t := range e.timeKey {
		row[0] = strconv.FormatFloat(t, 'g', -1, 64)
		row[1] = "NaN"
		if e.fakfErr == nil {
			row[1] = strconv.FormatFloat(e.fakf[i], 'g', -1, 64)
		}
		row[2] = strconv.FormatFloat(e.iakf[i], 'g', -1, 64)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
