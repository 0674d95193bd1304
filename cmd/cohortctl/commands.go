package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tso500-cohort-explorer/internal/app"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/logging"
	"github.com/tso500-cohort-explorer/internal/predicate"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "cohortctl",
		Short: "Query and check a TSO500 cohort explorer deployment",
		Long: `cohortctl resolves cohorts, fits survival curves and validates the
tabular and graph stores of a cohort explorer configuration.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newResolveCmd(opts),
		newViewsCmd(opts),
		newSurvivalCmd(opts),
		newCheckCmd(opts),
		newSetupCmd(),
	)
	return root
}

// loadConfig reads configuration and builds a logger writing to stderr
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*domain.Config, *logrus.Logger, io.Closer, error) {
	cfg, err := app.LoadConfig(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logCfg := cfg.Logging
	logCfg.Format = "text"
	logCfg.Level = "warn"
	if o.verbose {
		logCfg.Level = "debug"
	}
	if logCfg.Output != "file" {
		logCfg.Output = "stderr"
	}
	logger, closer, err := logging.NewLogger(logCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if logCfg.Output == "stderr" {
		logger.SetOutput(cmd.ErrOrStderr())
	}
	return cfg, logger, closer, nil
}

// startEngine loads the dataset and wires the cohort service
func (o *globalOptions) startEngine(cmd *cobra.Command) (*app.App, io.Closer, error) {
	cfg, logger, closer, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	engine, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return engine, closer, nil
}

// parseFilters decodes a JSON snapshot onto the defaults; "@path" reads it from a file.
func parseFilters(raw string) (predicate.Set, error) {
	set := predicate.Default()
	if raw == "" {
		return set, nil
	}
	data := []byte(raw)
	if raw[0] == '@' {
		contents, err := os.ReadFile(raw[1:])
		if err != nil {
			return set, fmt.Errorf("reading filters: %w", err)
		}
		data = contents
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return set, domain.NewValidationError("filters", fmt.Sprintf("malformed JSON: %v", err), raw)
	}
	return set, set.Validate()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
