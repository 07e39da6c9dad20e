package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/protoverge/protoverge/internal/cli/config"
)

var (
	initRevisions []string
	initCacheDir  string
	initForce     bool
)

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [project-name]",
		Short: "Scaffold a protoverge.yml for this project",
		Long: `Create a protoverge.yml in the current directory. Revision tags and
descriptor paths come from --revision flags when given, otherwise init
prompts for them interactively.

Examples:
  protoverge init shop --revision v1=schemas/v1.binpb --revision v2=schemas/v2.binpb
  protoverge init`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}

	cmd.Flags().StringArrayVar(&initRevisions, "revision", nil, "Revision as tag=descriptor-path (repeatable, oldest first)")
	cmd.Flags().StringVar(&initCacheDir, "cache-dir", ".protoverge", "Cache directory for generated artifacts")
	cmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing protoverge.yml")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)

	if config.Exists() && !initForce {
		overwrite := false
		prompt := &survey.Confirm{
			Message: "protoverge.yml already exists. Overwrite?",
			Default: false,
		}
		if err := survey.AskOne(prompt, &overwrite); err != nil {
			return fmt.Errorf("%s already exists (pass --force to overwrite)", config.FileName)
		}
		if !overwrite {
			return fmt.Errorf("aborted, %s left untouched", config.FileName)
		}
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		if wd, err := os.Getwd(); err == nil {
			name = filepath.Base(wd)
		}
		prompt := &survey.Input{
			Message: "Project name:",
			Default: name,
		}
		if err := survey.AskOne(prompt, &name, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	revisions, err := parseRevisionFlags(initRevisions)
	if err != nil {
		return err
	}
	if len(revisions) == 0 {
		revisions, err = promptRevisions()
		if err != nil {
			return err
		}
	}

	cfg := &config.Config{
		Project:   config.ProjectConfig{Name: name},
		Revisions: revisions,
		Generate:  config.GenerateConfig{CacheDir: initCacheDir, Builders: true},
		Log:       config.LogConfig{Level: "info", Format: "console"},
	}
	if err := cfg.Write(config.FileName); err != nil {
		return err
	}

	successColor.Fprintf(cmd.OutOrStdout(), "✓ Created %s for project %s\n", config.FileName, name)
	fmt.Fprintln(cmd.OutOrStdout())
	infoColor.Fprintln(cmd.OutOrStdout(), "Next steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "  1. Compile each revision's schema to a descriptor set:")
	fmt.Fprintln(cmd.OutOrStdout(), "     protoc --descriptor_set_out=schemas/v1.binpb --include_imports v1/*.proto")
	fmt.Fprintln(cmd.OutOrStdout(), "  2. Run: protoverge generate")
	return nil
}

// parseRevisionFlags turns repeated tag=path flags into revision configs,
// preserving flag order
func parseRevisionFlags(flags []string) ([]config.RevisionConfig, error) {
	out := make([]config.RevisionConfig, 0, len(flags))
	for _, f := range flags {
		tag, path, ok := strings.Cut(f, "=")
		if !ok || tag == "" || path == "" {
			return nil, fmt.Errorf("invalid --revision %q, expected tag=descriptor-path", f)
		}
		out = append(out, config.RevisionConfig{Tag: tag, Descriptor: path})
	}
	return out, nil
}

// promptRevisions collects revision tag/path pairs interactively, oldest
// first, until the user declines to add more
func promptRevisions() ([]config.RevisionConfig, error) {
	var out []config.RevisionConfig
	for {
		var tag string
		prompt := &survey.Input{
			Message: fmt.Sprintf("Revision %d tag (e.g. v%d):", len(out)+1, len(out)+1),
		}
		if err := survey.AskOne(prompt, &tag, survey.WithValidator(survey.Required)); err != nil {
			return nil, err
		}

		var path string
		pathPrompt := &survey.Input{
			Message: fmt.Sprintf("Descriptor set path for %s:", tag),
		}
		if err := survey.AskOne(pathPrompt, &path, survey.WithValidator(survey.Required)); err != nil {
			return nil, err
		}
		out = append(out, config.RevisionConfig{Tag: tag, Descriptor: path})

		if len(out) < 2 {
			// A unification needs at least two revisions; keep asking.
			continue
		}
		more := false
		morePrompt := &survey.Confirm{
			Message: "Add another revision?",
			Default: false,
		}
		if err := survey.AskOne(morePrompt, &more); err != nil {
			return nil, err
		}
		if !more {
			return out, nil
		}
	}
}
