// Package log defines standard attribute keys for tracegen batch operations.
//
// Using the same keys across the extract, simulate and validate stages keeps
// per-group log lines filterable by group and stage.

package log

// Run and stage context.
const (
	// RunIDKey identifies one invocation of the batch driver.
	RunIDKey = "run.id"

	// StageKey names the batch stage: "extract", "simulate" or "validate".
	StageKey = "pipeline.stage"

	// ComponentKey identifies the package emitting the record.
	// Examples: "ingest", "store", "synth"
	ComponentKey = "pipeline.component"

	// BackendKey names the distribution store backend.
	BackendKey = "store.backend"
)

// Group context.
const (
	// GroupIDKey is the group identifier (hash tag) a record refers to.
	GroupIDKey = "group.id"

	// GroupKeyKey is the raw grouping key value read from the input.
	GroupKeyKey = "group.key"

	// RowsKey is the number of rows in a group or synthetic dataset.
	RowsKey = "data.rows"

	// ColumnsKey is the number of modeled columns.
	ColumnsKey = "data.columns"

	// DependentColumnsKey is the number of dependent columns.
	DependentColumnsKey = "data.dependent_columns"

	// LinesKey counts input lines processed.
	LinesKey = "data.lines"

	// PathKey is a file or directory path.
	PathKey = "io.path"
)

// Results.
const (
	// DivergenceKey is the KL divergence of a validated group.
	DivergenceKey = "metrics.divergence"

	// AttemptedKey, SucceededKey, SkippedKey and FailedKey report stage counts.
	AttemptedKey = "summary.attempted"
	SucceededKey = "summary.succeeded"
	SkippedKey   = "summary.skipped"
	FailedKey    = "summary.failed"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// WorkersKey records the number of parallel workers.
	WorkersKey = "config.workers"
)
