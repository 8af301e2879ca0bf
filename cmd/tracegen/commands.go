package main

import (
	"github.com/YuminosukeSato/tracegen/ingest"
	"github.com/YuminosukeSato/tracegen/pipeline"
	"github.com/YuminosukeSato/tracegen/store"
	"github.com/spf13/cobra"
)

func (a *app) pipeline(st store.Store) *pipeline.Pipeline {
	return pipeline.New(st,
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithReport(a.stdout),
		pipeline.WithSeed(a.cfg.Simulate.Seed),
		pipeline.WithWorkers(a.cfg.Simulate.Workers),
		pipeline.WithTagColumn(a.cfg.Simulate.TagColumn),
		pipeline.WithPlotDir(a.cfg.Report.PlotDir),
	)
}

func newExtractCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <input> <extract-dir> <dist-dir> [max-groups] [support] [group-key]",
		Short: "Group the input and store the distribution of every group",
		Long: `Reads the grouped input table, keeps groups with at least [support]
records up to [max-groups] stored groups (0: no cap), writes each group's
records to <extract-dir> and stores its distribution in <dist-dir>. Omitted
[max-groups] and [support] come from input.max_groups and
input.support_threshold in the configuration. The optional [group-key]
overrides the grouping key column.`,
		Args: cobra.RangeArgs(3, 6),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxGroups := a.cfg.Input.MaxGroups
			support := a.cfg.Input.SupportThreshold
			var err error
			if len(args) > 3 {
				if maxGroups, err = parseCount("max-groups", args[3], 0); err != nil {
					return err
				}
			}
			if len(args) > 4 {
				if support, err = parseCount("support", args[4], 2); err != nil {
					return err
				}
			}
			in := a.cfg.Input
			schema := ingest.Schema{
				GroupKey:   in.GroupKey,
				TagColumn:  in.TagColumn,
				Columns:    in.Columns,
				IntColumns: in.IntColumns,
			}
			if len(args) == 6 {
				if schema.GroupKey, err = parseCount("group-key", args[5], 0); err != nil {
					return err
				}
			}

			st, err := a.openStore(args[2], true)
			if err != nil {
				return err
			}
			defer st.Close()

			_, err = a.pipeline(st).Extract(cmd.Context(), pipeline.ExtractRequest{
				Input:            args[0],
				Schema:           schema,
				ExtractDir:       args[1],
				MaxGroups:        maxGroups,
				SupportThreshold: support,
			})
			return err
		},
	}
}

func newSimulateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <dist-dir> <datagen-dir> <consolidated> <rows>",
		Short: "Synthesize <rows> rows for every stored group",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := parseCount("rows", args[3], 1)
			if err != nil {
				return err
			}
			st, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			defer st.Close()

			_, err = a.pipeline(st).Simulate(cmd.Context(), pipeline.SimulateRequest{
				OutputDir:    args[1],
				Consolidated: args[2],
				Rows:         rows,
			})
			return err
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dist-dir> <datagen-dir>",
		Short: "Score synthetic groups against their stored distribution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(args[0], false)
			if err != nil {
				return err
			}
			defer st.Close()

			_, err = a.pipeline(st).Validate(cmd.Context(), pipeline.ValidateRequest{
				SyntheticDir: args[1],
			})
			return err
		},
	}
}
