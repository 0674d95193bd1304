package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tso500-cohort-explorer/internal/app"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/graph"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the tabular columns and graph relationship types",
		Long: `check verifies that every table and column the engine reads exists and,
for a bolt graph store, that every relationship type is present. It exits
non-zero on a configuration error. An unreachable graph store is reported
but is not a configuration error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			source, err := app.OpenSource(ctx, cfg.Tabular, logger)
			if err != nil {
				return err
			}
			defer source.Close()
			if err := source.Validate(ctx); err != nil {
				return err
			}
			columns, err := source.Columns(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "tabular (%s): ok, %d columns\n", cfg.Tabular.Driver, len(columns))

			if cfg.Graph.Driver != domain.GraphDriverBolt {
				fmt.Fprintf(out, "graph (%s): ok\n", cfg.Graph.Driver)
				return nil
			}
			store, err := graph.Connect(ctx, cfg.Graph, logger)
			if store != nil {
				defer store.Close(ctx)
			}
			if err == nil {
				err = graph.VerifySchema(ctx, store)
			}
			switch {
			case err == nil:
				fmt.Fprintf(out, "graph (%s): ok, relationship types %v\n", cfg.Graph.URI, graph.RequiredRelationships)
			case errors.Is(err, domain.ErrStoreUnavailable):
				fmt.Fprintf(out, "graph (%s): unreachable, relationship filters would be degraded: %v\n", cfg.Graph.URI, err)
			default:
				return err
			}
			return nil
		},
	}
}
