package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tso500-cohort-explorer/internal/survival"
)

func newResolveCmd(opts *globalOptions) *cobra.Command {
	var filters string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the cohort of a filter snapshot",
		Example: `  cohortctl resolve --filters '{"sex":["female"],"protocol":"PROT_001"}'
  cohortctl resolve --filters @snapshot.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := parseFilters(filters)
			if err != nil {
				return err
			}
			engine, closer, err := opts.startEngine(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()
			defer engine.Close()

			res, err := engine.Service.Resolve(cmd.Context(), set)
			if err != nil {
				return err
			}
			if res.Degraded {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s (%v)\n", res.Warning, res.Unapplied)
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&filters, "filters", "", "filter snapshot as JSON, or @file")
	return cmd
}

func newViewsCmd(opts *globalOptions) *cobra.Command {
	var filters string

	cmd := &cobra.Command{
		Use:   "views",
		Short: "Print the aggregate views of a cohort",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := parseFilters(filters)
			if err != nil {
				return err
			}
			engine, closer, err := opts.startEngine(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()
			defer engine.Close()

			res, views, err := engine.Service.Views(cmd.Context(), set)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"cohort": res, "views": views})
		},
	}
	cmd.Flags().StringVar(&filters, "filters", "", "filter snapshot as JSON, or @file")
	return cmd
}

func newSurvivalCmd(opts *globalOptions) *cobra.Command {
	var (
		filters string
		key     string
	)

	cmd := &cobra.Command{
		Use:   "survival",
		Short: "Fit synthetic survival curves for a cohort",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			strat, err := survival.ParseKey(key)
			if err != nil {
				return err
			}
			set, err := parseFilters(filters)
			if err != nil {
				return err
			}
			engine, closer, err := opts.startEngine(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()
			defer engine.Close()

			est, err := engine.Service.Survival(cmd.Context(), set, strat)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), est)
		},
	}
	cmd.Flags().StringVar(&filters, "filters", "", "filter snapshot as JSON, or @file")
	cmd.Flags().StringVar(&key, "key", string(survival.KeyIntervention), "stratification key: intervention, protocol, gene or sex")
	return cmd
}
