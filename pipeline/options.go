package pipeline

import (
	"io"

	"github.com/YuminosukeSato/tracegen/pkg/log"
	"github.com/YuminosukeSato/tracegen/pkg/telemetry"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics records stage metrics on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithWorkers sets the number of groups simulated or validated
// concurrently. Values below 1 mean one worker per CPU.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// WithSeed sets the seed of the per-group random streams.
func WithSeed(seed uint64) Option {
	return func(p *Pipeline) {
		p.seed = seed
	}
}

// WithTagColumn sets the group column name of the consolidated file.
func WithTagColumn(name string) Option {
	return func(p *Pipeline) {
		p.tagColumn = name
	}
}

// WithPlotDir enables per-group comparison plots during validation.
func WithPlotDir(dir string) Option {
	return func(p *Pipeline) {
		p.plotDir = dir
	}
}

// WithReport sets where report lines are printed.
func WithReport(w io.Writer) Option {
	return func(p *Pipeline) {
		if w != nil {
			p.out = w
		}
	}
}
