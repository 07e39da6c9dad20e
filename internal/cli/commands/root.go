package commands

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionJSON bool

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "protoverge",
		Short: "Unified accessors over protobuf schema revisions",
		Long: color.CyanString(`protoverge - Schema Revision Unification

protoverge merges compiled protobuf descriptor sets from multiple schema
revisions into one unified accessor surface. Readers widen across
compatible type drift, incompatible writes are suppressed rather than
guessed, and every revision keeps a native escape hatch.

Commands:
  generate   merge revisions and synthesize the unified accessor IR
  diff       report per-field changes and conflicts across revisions
  cache      inspect or clear the incremental generation cache
  init       scaffold a protoverge.yml for this project
  debug      dump loaded schema models and synthesized IR`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewDiffCommand())
	rootCmd.AddCommand(NewCacheCommand())
	rootCmd.AddCommand(NewDebugCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the protoverge version, Git commit, build date, and Go version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if versionJSON {
				out, err := json.MarshalIndent(map[string]string{
					"version":    Version,
					"git_commit": GitCommit,
					"build_date": BuildDate,
					"go_version": runtime.Version(),
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(cmd.OutOrStdout(), "protoverge version: ")
			valueColor.Fprintln(cmd.OutOrStdout(), Version)

			titleColor.Fprint(cmd.OutOrStdout(), "Git commit: ")
			valueColor.Fprintln(cmd.OutOrStdout(), GitCommit)

			titleColor.Fprint(cmd.OutOrStdout(), "Build date: ")
			valueColor.Fprintln(cmd.OutOrStdout(), BuildDate)

			titleColor.Fprint(cmd.OutOrStdout(), "Go version: ")
			valueColor.Fprintln(cmd.OutOrStdout(), runtime.Version())
			return nil
		},
	}
	cmd.Flags().BoolVar(&versionJSON, "json", false, "Output version information as JSON")
	return cmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
