package workflow

import "errors"

var (
	// ErrSourceUnavailable is returned when the configured export
	// directory does not exist or cannot be read.
	ErrSourceUnavailable = errors.New("source directory not found")

	// ErrNoDataForPeriod is returned when the source directory exists
	// but contains none of the expected export files for the period.
	ErrNoDataForPeriod = errors.New("no export files found for the selected period")

	// ErrAlreadyProcessed is returned when a run is triggered on an
	// analysis that has moved past the downloading stage.
	ErrAlreadyProcessed = errors.New("analysis has already been processed")

	// ErrRunInProgress is returned when another run for the same
	// period is already queued or executing.
	ErrRunInProgress = errors.New("another run for this period is in progress")
)
