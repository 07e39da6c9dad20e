package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/protoverge/protoverge/internal/cli/config"
	"github.com/protoverge/protoverge/internal/cli/ui"
	"github.com/protoverge/protoverge/internal/generator/contract"
	"github.com/protoverge/protoverge/internal/generator/diff"
	"github.com/protoverge/protoverge/internal/generator/merge"
	"github.com/protoverge/protoverge/internal/generator/schema"
	"github.com/protoverge/protoverge/internal/logging"
)

var (
	diffJSON           bool
	diffFailOnBreaking bool
)

// NewDiffCommand creates the diff command
func NewDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Report field changes and conflicts across revisions",
		Long: `Merge the configured revisions without synthesizing and print every
per-field change: type drift, classification, when a field appeared or
disappeared, and whether the unified surface loses capability over it.

Examples:
  protoverge diff
  protoverge diff --json
  protoverge diff --fail-on-breaking`,
		RunE: runDiff,
	}

	cmd.Flags().BoolVar(&diffJSON, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&diffFailOnBreaking, "fail-on-breaking", false, "Exit non-zero when breaking changes exist")

	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireRevisions(2); err != nil {
		return err
	}
	logging.Initialize(cfg.Log.Level, logging.Format(cfg.Log.Format))
	defer logging.Sync()

	inputs := make([]schema.Input, len(cfg.Revisions))
	for i, r := range cfg.Revisions {
		inputs[i] = schema.Input{Tag: r.Tag, Path: r.Descriptor, Syntax: r.Syntax}
	}
	set, err := schema.NewLoader().LoadSet(inputs)
	if err != nil {
		return err
	}

	merged, err := merge.New(set, contract.NewCache(), merge.Options{
		Mappings:        cfg.Mappings,
		IncludeMessages: cfg.Include.Messages,
		ExcludeMessages: cfg.Exclude.Messages,
		ExcludeFields:   cfg.Exclude.Fields,
	}).Merge()
	if err != nil {
		return err
	}

	report := diff.Build(merged, nil)

	if diffJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	} else {
		printDiffReport(cmd, report)
	}

	if diffFailOnBreaking && report.Totals.Breaking > 0 {
		return fmt.Errorf("%d breaking change(s) across revisions %s",
			report.Totals.Breaking, strings.Join(report.Revisions, " → "))
	}
	return nil
}

func printDiffReport(cmd *cobra.Command, report *diff.Report) {
	w := cmd.OutOrStdout()
	headerColor := color.New(color.FgCyan, color.Bold)
	warnColor := color.New(color.FgYellow)
	successColor := color.New(color.FgGreen, color.Bold)

	headerColor.Fprintf(w, "Revisions: %s\n\n", strings.Join(report.Revisions, " → "))

	for _, md := range report.Messages {
		title := md.Name
		if md.AddedIn != "" {
			title += fmt.Sprintf("  (added in %s)", md.AddedIn)
		}
		if md.RemovedIn != "" {
			title += fmt.Sprintf("  (removed in %s)", md.RemovedIn)
		}
		ui.Header(w, title, false)

		table := ui.NewTable(w, "Field", "#", "Conflict", "Types", "Note")
		for _, fd := range md.Fields {
			if fd.Conflict == merge.ConflictNone && fd.AddedIn == "" && fd.RemovedIn == "" {
				continue
			}
			cells := []string{
				fd.Name,
				fmt.Sprintf("%d", fd.Number),
				fd.Conflict.String(),
				typesColumn(report.Revisions, fd),
				noteColumn(fd),
			}
			if fd.Breaking {
				table.AddBreakingRow(cells...)
			} else {
				table.AddRow(cells...)
			}
		}
		table.Render()
		fmt.Fprintln(w)
	}

	if report.Totals.Breaking > 0 {
		warnColor.Fprintf(w, "%d message(s), %d field(s), %d conflicted, %d breaking\n",
			report.Totals.Messages, report.Totals.Fields, report.Totals.Conflicted, report.Totals.Breaking)
	} else {
		successColor.Fprintf(w, "%d message(s), %d field(s), %d conflicted, none breaking\n",
			report.Totals.Messages, report.Totals.Fields, report.Totals.Conflicted)
	}
}

// typesColumn renders the per-revision types in revision order, collapsing
// runs of the same type
func typesColumn(revisions []string, fd diff.FieldDiff) string {
	var parts []string
	prev := ""
	for _, rev := range revisions {
		t, ok := fd.Types[rev]
		if !ok {
			continue
		}
		if t == prev {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%s", rev, t))
		prev = t
	}
	return strings.Join(parts, " → ")
}

func noteColumn(fd diff.FieldDiff) string {
	var parts []string
	if fd.AddedIn != "" {
		parts = append(parts, "added in "+fd.AddedIn)
	}
	if fd.RemovedIn != "" {
		parts = append(parts, "removed in "+fd.RemovedIn)
	}
	if fd.Note != "" && fd.Conflict != merge.ConflictNone {
		parts = append(parts, fd.Note)
	}
	return strings.Join(parts, "; ")
}
