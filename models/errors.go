package models

import "fmt"

// MissingIndicatorError reports a required technical value absent from a
// snapshot. The scorer never substitutes a default for a required value.
type MissingIndicatorError struct {
	Indicator string
}

func (e *MissingIndicatorError) Error() string {
	return fmt.Sprintf("required indicator missing: %s", e.Indicator)
}

// InsufficientDataError reports fewer bars than a component's minimum.
type InsufficientDataError struct {
	Got  int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: got %d bars, need at least %d", e.Got, e.Need)
}

// InsufficientHistoryError reports a bar series too short to replay.
type InsufficientHistoryError struct {
	Got  int
	Need int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: got %d bars, need at least %d", e.Got, e.Need)
}

// InconsistentPredictionError reports a failed internal consistency check
// in the scorer. It indicates a scorer bug, not bad input.
type InconsistentPredictionError struct {
	Reported   float64
	Recomputed float64
}

func (e *InconsistentPredictionError) Error() string {
	return fmt.Sprintf("inconsistent prediction: reported change %.4f%% but recomputed %.4f%%",
		e.Reported, e.Recomputed)
}
