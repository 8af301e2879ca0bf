package pipeline

import (
	"fmt"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
)

// Stage names a batch stage.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageSimulate Stage = "simulate"
	StageValidate Stage = "validate"
)

func (s Stage) pastTense() string {
	switch s {
	case StageExtract:
		return "extracted"
	case StageSimulate:
		return "simulated"
	case StageValidate:
		return "validated"
	default:
		return string(s)
	}
}

// Outcome classifies a group result.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// GroupResult is the outcome of one group in one stage. Err is nil on
// success.
type GroupResult struct {
	Stage Stage
	ID    string

	// Rows is the number of records modeled or synthesized.
	Rows int

	// Divergence is set by the validate stage.
	Divergence float64

	// Path is the file written or read for the group, if any.
	Path string

	Err error
}

// Outcome reports whether the group succeeded, was skipped for a data
// condition, or failed.
func (r GroupResult) Outcome() Outcome {
	if r.Err == nil {
		return OutcomeSucceeded
	}
	if isSkip(r.Err) {
		return OutcomeSkipped
	}
	return OutcomeFailed
}

// isSkip reports whether err is an expected per-group data condition rather
// than a failure.
func isSkip(err error) bool {
	var (
		dataErr     *errors.InsufficientDataError
		factErr     *errors.FactorizationError
		singularErr *errors.SingularMatrixError
		missingErr  *errors.MissingArtifactError
	)
	return errors.As(err, &dataErr) ||
		errors.As(err, &factErr) ||
		errors.As(err, &singularErr) ||
		errors.As(err, &missingErr)
}

// Summary aggregates the results of one stage.
type Summary struct {
	Stage     Stage
	Attempted int
	Succeeded int
	Skipped   int
	Failed    int

	// Results are in group order.
	Results []GroupResult
}

// Add counts r.
func (s *Summary) Add(r GroupResult) {
	s.Attempted++
	switch r.Outcome() {
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

// String renders the final summary line of the stage.
func (s Summary) String() string {
	return fmt.Sprintf("Successfully %s %d of %d groups (%d skipped, %d failed).",
		s.Stage.pastTense(), s.Succeeded, s.Attempted, s.Skipped, s.Failed)
}
