package sim

import "errors"

var (
	// ErrCanceled indicates a batch stopped by Cancel or its context. Its
	// partial history is discarded.
	ErrCanceled = errors.New("sim: batch canceled")

	// ErrNotPrepared indicates Run on a batch whose Prepare did not finish.
	ErrNotPrepared = errors.New("sim: batch not prepared")

	// ErrBatchReused indicates Prepare or Run on a batch that was already
	// prepared or run.
	ErrBatchReused = errors.New("sim: batch already used")

	// ErrInvalidConfig indicates batch or robot parameters out of range.
	ErrInvalidConfig = errors.New("sim: invalid configuration")
)
