package speckle

import "errors"

// Errors returned by speckle and ensemble operations.
var (
	ErrInvalidInput       = errors.New("speckle: invalid input")
	ErrLengthMismatch     = errors.New("speckle: length mismatch")
	ErrDegenerateSequence = errors.New("speckle: degenerate sequence")
	ErrIndexOutOfRange    = errors.New("speckle: index out of range")
	ErrNotUpdated         = errors.New("speckle: ensemble not updated")
	ErrInvalidArguments   = errors.New("speckle: invalid arguments")
	ErrEmptyEnsemble      = errors.New("speckle: empty ensemble")
	ErrNoTimeKey          = errors.New("speckle: no time key")
)
