// Package pipeline runs the extract, simulate and validate batch stages.
//
// Every group is processed independently. A group that fails, or is
// skipped for lack of data, becomes a GroupResult; only failures outside
// any group (unreadable input, missing store, unwritable consolidated file)
// abort a stage.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/YuminosukeSato/tracegen/core/distribution"
	"github.com/YuminosukeSato/tracegen/core/parallel"
	"github.com/YuminosukeSato/tracegen/core/synth"
	"github.com/YuminosukeSato/tracegen/ingest"
	"github.com/YuminosukeSato/tracegen/metrics"
	"github.com/YuminosukeSato/tracegen/output"
	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/YuminosukeSato/tracegen/pkg/log"
	"github.com/YuminosukeSato/tracegen/pkg/telemetry"
	"github.com/YuminosukeSato/tracegen/report"
	"github.com/YuminosukeSato/tracegen/store"
)

// Pipeline runs batch stages against one distribution store.
type Pipeline struct {
	store     store.Store
	logger    log.Logger
	metrics   *telemetry.Metrics
	validator *metrics.Validator
	workers   int
	seed      uint64
	tagColumn string
	plotDir   string
	out       io.Writer
}

// New creates a Pipeline over st.
func New(st store.Store, options ...Option) *Pipeline {
	p := &Pipeline{
		store:     st,
		logger:    log.Nop(),
		validator: metrics.NewValidator(),
		workers:   1,
		seed:      1,
		tagColumn: output.DefaultTagColumn,
		out:       io.Discard,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// ExtractRequest parameterizes the extract stage.
type ExtractRequest struct {
	Input  string
	Schema ingest.Schema

	// ExtractDir receives one CSV per modeled group when set.
	ExtractDir string

	// MaxGroups caps the groups stored successfully; groups that fail to
	// build or store do not count. 0 means no cap.
	MaxGroups int

	SupportThreshold int
}

// Extract reads the grouped input and stores the distribution of every
// group with enough records.
func (p *Pipeline) Extract(ctx context.Context, req ExtractRequest) (Summary, error) {
	start := time.Now()
	summary := Summary{Stage: StageExtract}
	logger := p.logger.With(log.StageKey, string(StageExtract))

	intCols, err := req.Schema.OutputIntColumns()
	if err != nil {
		return summary, err
	}
	if req.ExtractDir != "" {
		if err := os.MkdirAll(req.ExtractDir, 0o755); err != nil {
			return summary, errors.Wrapf(err, "create extraction directory %s", req.ExtractDir)
		}
	}

	acc, err := ingest.NewReader(req.Schema, logger).ReadFile(ctx, req.Input)
	if err != nil {
		return summary, err
	}

	stored := make(map[string]bool)
	modeled := 0
	for g, err := range acc.Drain(req.SupportThreshold) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if req.MaxGroups > 0 && modeled >= req.MaxGroups {
			break
		}
		var r GroupResult
		if err != nil {
			r = GroupResult{Stage: StageExtract, Err: err}
			var dataErr *errors.InsufficientDataError
			if errors.As(err, &dataErr) {
				r.ID, r.Rows = dataErr.GroupID, dataErr.Rows
			}
		} else {
			if stored[g.Tag] {
				logger.Warn("Group tag seen under another key; replacing stored group",
					log.GroupIDKey, g.Tag, log.GroupKeyKey, g.Key)
			}
			r = p.extractGroup(ctx, g, intCols, req.ExtractDir)
			if r.Err == nil {
				stored[g.Tag] = true
				modeled++
			}
		}
		p.record(logger, &summary, r)
	}

	p.finish(logger, summary, start)
	return summary, nil
}

func (p *Pipeline) extractGroup(ctx context.Context, g *ingest.Group, intCols []int, dir string) (r GroupResult) {
	r = GroupResult{Stage: StageExtract, ID: g.Tag, Rows: g.Rows()}
	r.Err = errors.SafeExecute("extract group "+g.Tag, func() error {
		d, err := distribution.Build(g.Tag, g.Header, g.Data, intCols)
		if err != nil {
			return err
		}
		if err := p.store.Put(ctx, d); err != nil {
			return err
		}
		if dir != "" {
			path, err := ingest.WriteGroup(dir, g)
			if err != nil {
				return err
			}
			r.Path = path
		}
		return nil
	})
	return r
}

// SimulateRequest parameterizes the simulate stage.
type SimulateRequest struct {
	// OutputDir receives one CSV per group.
	OutputDir string

	// Consolidated is the path of the file holding every group's rows.
	Consolidated string

	// Rows is the number of rows synthesized per group.
	Rows int
}

// Simulate synthesizes Rows rows for every stored group. Group i draws from
// its own random stream (seed, i), so results do not depend on the number
// of workers.
func (p *Pipeline) Simulate(ctx context.Context, req SimulateRequest) (Summary, error) {
	start := time.Now()
	summary := Summary{Stage: StageSimulate}
	logger := p.logger.With(log.StageKey, string(StageSimulate))

	if req.Rows < 1 {
		return summary, errors.NewValidationError("rows", "must be positive", req.Rows)
	}
	ids, err := p.store.IDs(ctx)
	if err != nil {
		return summary, err
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return summary, errors.Wrapf(err, "create output directory %s", req.OutputDir)
	}
	consolidated, err := output.CreateConsolidated(req.Consolidated, p.tagColumn)
	if err != nil {
		return summary, err
	}

	workers := parallel.Workers(p.workers, len(ids))
	logger.Info("Simulating groups",
		"groups", len(ids),
		log.RowsKey, req.Rows,
		log.WorkersKey, workers,
		log.RandomSeedKey, p.seed,
	)

	results := make([]GroupResult, len(ids))
	err = parallel.ForEach(ctx, len(ids), workers, func(ctx context.Context, i int) error {
		results[i] = p.simulateGroup(ctx, i, ids[i], req, consolidated)
		return nil
	})
	if cerr := consolidated.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "close %s", req.Consolidated)
	}
	if err != nil {
		return summary, err
	}

	for _, r := range results {
		p.record(logger, &summary, r)
		if r.Err == nil {
			p.metrics.AddSyntheticRows(r.Rows)
		}
	}
	p.finish(logger, summary, start)
	return summary, nil
}

func (p *Pipeline) simulateGroup(ctx context.Context, i int, id string, req SimulateRequest, consolidated *output.ConsolidatedWriter) (r GroupResult) {
	r = GroupResult{Stage: StageSimulate, ID: id}
	r.Err = errors.SafeExecute("simulate group "+id, func() error {
		d, err := p.store.Get(ctx, id)
		if err != nil {
			return err
		}
		// the header goes out even when this group's synthesis fails
		if err := consolidated.WriteHeader(d.Header); err != nil {
			return errors.Wrap(err, "write consolidated header")
		}
		x, err := synth.NewSeeded(p.seed, uint64(i)).Synthesize(d, req.Rows)
		if err != nil {
			return err
		}
		path := filepath.Join(req.OutputDir, output.FileName(id))
		if err := output.WriteFile(path, d.Header, x); err != nil {
			return err
		}
		r.Path = path
		if err := consolidated.Write(id, d.Header, x); err != nil {
			return errors.Wrap(err, "append to consolidated output")
		}
		r.Rows = req.Rows
		return nil
	})
	return r
}

// ValidateRequest parameterizes the validate stage.
type ValidateRequest struct {
	// SyntheticDir holds the per-group files written by Simulate.
	SyntheticDir string
}

// Validate scores every stored group that has a synthetic file and prints
// one "Group <id>: <kl>" line per scored group followed by a divergence
// summary. Groups without a synthetic file are skipped silently.
func (p *Pipeline) Validate(ctx context.Context, req ValidateRequest) (Summary, error) {
	start := time.Now()
	summary := Summary{Stage: StageValidate}
	logger := p.logger.With(log.StageKey, string(StageValidate))

	ids, err := p.store.IDs(ctx)
	if err != nil {
		return summary, err
	}
	if p.plotDir != "" {
		if err := os.MkdirAll(p.plotDir, 0o755); err != nil {
			return summary, errors.Wrapf(err, "create plot directory %s", p.plotDir)
		}
	}

	results := make([]GroupResult, len(ids))
	err = parallel.ForEach(ctx, len(ids), p.workers, func(ctx context.Context, i int) error {
		results[i] = p.validateGroup(ctx, ids[i], req, logger)
		return nil
	})
	if err != nil {
		return summary, err
	}

	var divergences []float64
	for _, r := range results {
		p.record(logger, &summary, r)
		if r.Err == nil {
			divergences = append(divergences, r.Divergence)
			p.metrics.ObserveDivergence(r.Divergence)
			fmt.Fprintf(p.out, "Group %s: %g\n", r.ID, r.Divergence)
		}
	}
	ds, err := report.SummarizeDivergence(divergences)
	if err != nil {
		return summary, err
	}
	fmt.Fprintln(p.out, ds)

	p.finish(logger, summary, start)
	return summary, nil
}

func (p *Pipeline) validateGroup(ctx context.Context, id string, req ValidateRequest, logger log.Logger) (r GroupResult) {
	path := filepath.Join(req.SyntheticDir, output.FileName(id))
	r = GroupResult{Stage: StageValidate, ID: id, Path: path}
	r.Err = errors.SafeExecute("validate group "+id, func() error {
		header, x, err := output.ReadFile(path)
		if err != nil {
			return err
		}
		r.Rows, _ = x.Dims()
		d, err := p.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if !slices.Equal(header, d.Header) {
			return errors.NewValidationError("header", fmt.Sprintf("synthetic file %s does not match the stored header %v", path, d.Header), header)
		}
		kl, err := p.validator.Score(d, x)
		if err != nil {
			return err
		}
		r.Divergence = kl

		if p.plotDir != "" {
			plotPath := filepath.Join(p.plotDir, id+".png")
			if err := report.PlotGroup(plotPath, d, x); err != nil {
				logger.Warn("Plot failed", err, log.GroupIDKey, id, log.PathKey, plotPath)
			}
		}
		return nil
	})
	return r
}

// record counts r and logs it. A missing synthetic file during validation
// is expected for partial runs and only logged at debug level.
func (p *Pipeline) record(logger log.Logger, s *Summary, r GroupResult) {
	s.Add(r)
	outcome := r.Outcome()
	p.metrics.GroupDone(string(r.Stage), string(outcome))

	switch outcome {
	case OutcomeSucceeded:
		fields := []any{log.GroupIDKey, r.ID, log.RowsKey, r.Rows}
		if r.Stage == StageValidate {
			fields = append(fields, log.DivergenceKey, r.Divergence)
		}
		logger.Info("Group "+r.Stage.pastTense(), fields...)
	case OutcomeSkipped:
		var missing *errors.MissingArtifactError
		if errors.As(r.Err, &missing) {
			logger.Debug("Group skipped", r.Err, log.GroupIDKey, r.ID, log.PathKey, missing.Path)
			return
		}
		logger.Warn("Group skipped", r.Err, log.GroupIDKey, r.ID, log.RowsKey, r.Rows)
	default:
		logger.Error("Group failed", r.Err, log.GroupIDKey, r.ID)
	}
}

func (p *Pipeline) finish(logger log.Logger, s Summary, start time.Time) {
	elapsed := time.Since(start)
	p.metrics.ObserveStage(string(s.Stage), elapsed.Seconds())
	logger.Info("Stage complete",
		log.AttemptedKey, s.Attempted,
		log.SucceededKey, s.Succeeded,
		log.SkippedKey, s.Skipped,
		log.FailedKey, s.Failed,
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	fmt.Fprintln(p.out, s)
}
