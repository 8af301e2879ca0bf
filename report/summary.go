// Package report summarizes validation results and draws comparison plots.
package report

import (
	"fmt"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/montanaflynn/stats"
)

// DivergenceSummary describes the divergences of a validation run.
type DivergenceSummary struct {
	Count  int
	Mean   float64
	Median float64
	P95    float64
	Max    float64
}

// SummarizeDivergence summarizes the per-group divergences. No values
// yield a zero summary.
func SummarizeDivergence(values []float64) (DivergenceSummary, error) {
	s := DivergenceSummary{Count: len(values)}
	if len(values) == 0 {
		return s, nil
	}
	data := stats.Float64Data(values)

	var err error
	if s.Mean, err = data.Mean(); err != nil {
		return s, errors.Wrap(err, "divergence mean")
	}
	if s.Median, err = data.Median(); err != nil {
		return s, errors.Wrap(err, "divergence median")
	}
	if s.P95, err = stats.PercentileNearestRank(data, 95); err != nil {
		return s, errors.Wrap(err, "divergence p95")
	}
	if s.Max, err = data.Max(); err != nil {
		return s, errors.Wrap(err, "divergence max")
	}
	return s, nil
}

func (s DivergenceSummary) String() string {
	if s.Count == 0 {
		return "Divergence: no groups validated"
	}
	return fmt.Sprintf("Divergence over %d groups: mean %.6g, median %.6g, p95 %.6g, max %.6g",
		s.Count, s.Mean, s.Median, s.P95, s.Max)
}
