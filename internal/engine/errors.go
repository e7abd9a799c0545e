package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable is returned by input sources that cannot
	// currently deliver samples (no camera, no detector, device lost).
	ErrSourceUnavailable = errors.New("engine: input source unavailable")

	ErrInvalidConfig = errors.New("engine: invalid configuration")

	// ErrNoSource means the selected input mode has no source attached.
	ErrNoSource = errors.New("engine: no input source for mode")
)

// FrameError ties an error to the frame it happened in.
type FrameError struct {
	Frame   uint64
	Time    float64
	Wrapped error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (t=%.3f): %v", e.Frame, e.Time, e.Wrapped)
}

func (e *FrameError) Unwrap() error {
	return e.Wrapped
}
