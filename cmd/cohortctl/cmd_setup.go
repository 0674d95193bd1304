package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tso500-cohort-explorer/internal/setup"
)

func newSetupCmd() *cobra.Command {
	var (
		desktopConfig string
		opts          setup.Options
	)

	resolvePath := func() (string, error) {
		if desktopConfig != "" {
			return desktopConfig, nil
		}
		return setup.DesktopConfigPath()
	}

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the cohort MCP server with a desktop MCP client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvePath()
			if err != nil {
				return err
			}
			entry, err := setup.Register(path, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\n  command: %s %v\n", setup.ServerName, path, entry.Command, entry.Args)
			return nil
		},
	}
	cmd.Flags().StringVar(&desktopConfig, "desktop-config", "", "desktop client config file (defaults to the platform location)")
	cmd.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to the mcp-server binary")
	cmd.Flags().StringVar(&opts.ConfigPath, "engine-config", "", "config.yaml passed to the MCP server")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level for the MCP server")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the registered MCP server and any problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvePath()
			if err != nil {
				return err
			}
			entry, issues, err := setup.Status(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if entry != nil {
				fmt.Fprintf(out, "%s: %s %v\n", setup.ServerName, entry.Command, entry.Args)
			}
			for _, issue := range issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			if len(issues) > 0 {
				return fmt.Errorf("%d setup issue(s)", len(issues))
			}
			return nil
		},
	}
	status.Flags().StringVar(&desktopConfig, "desktop-config", "", "desktop client config file (defaults to the platform location)")
	cmd.AddCommand(status)
	return cmd
}
