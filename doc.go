// Package tracegen synthesizes look-alike datasets from grouped numeric
// job traces.
//
// Records sharing a grouping key form a group. For each group tracegen
// learns the mean, standard deviation and covariance of the value columns,
// draws synthetic rows that reproduce them, and scores the synthetic data
// by the Gaussian KL divergence from the reference.
//
// # Quick Start
//
//	tracegen extract trace.csv extract/ dist/ 10 5
//	tracegen simulate dist/ datagen/ consolidated.csv 1000
//	tracegen validate dist/ datagen/
//
// The same stages are available as a library:
//
//	st, err := store.Open(store.KindArray, "dist", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
//	p := pipeline.New(st, pipeline.WithSeed(42), pipeline.WithWorkers(4))
//	summary, err := p.Simulate(ctx, pipeline.SimulateRequest{
//	    OutputDir:    "datagen",
//	    Consolidated: "consolidated.csv",
//	    Rows:         1000,
//	})
//
// # Packages
//
//   - core/distribution: moments, dependent column selection, Distribution
//   - core/synth: Box–Muller draws and correlated synthesis
//   - core/parallel: bounded per-group worker pool
//   - metrics: closed-form Gaussian KL divergence and the Validator
//   - store: array file, CSV table and SQLite distribution stores
//   - ingest: grouped input reader and per-group accumulator
//   - output: per-group and consolidated synthetic CSV files
//   - pipeline: extract, simulate and validate batch stages
//   - report: divergence summary and comparison plots
//   - pkg/config, pkg/log, pkg/errors, pkg/telemetry: configuration,
//     structured logging, typed errors and Prometheus metrics
//
// # Reproducibility
//
// Group i of a simulate run draws from the PCG stream (seed, i), so the
// synthetic files do not depend on the number of workers.
package tracegen
