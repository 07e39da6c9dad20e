package commands

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/protoverge/protoverge/internal/cli/config"
	"github.com/protoverge/protoverge/internal/cli/ui"
	"github.com/protoverge/protoverge/internal/generator"
	"github.com/protoverge/protoverge/internal/generator/merge"
	"github.com/protoverge/protoverge/internal/generator/schema"
	"github.com/protoverge/protoverge/internal/generator/synth"
	"github.com/protoverge/protoverge/internal/logging"
)

var (
	debugTag    string
	debugSyntax string
)

// debugSpew dumps deterministically: sorted map keys, no pointer
// addresses, so output is diffable across runs.
var debugSpew = &spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// NewDebugCommand creates the debug command group
func NewDebugCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Dump internal models for triage",
	}

	cmd.AddCommand(newDebugDescriptorsCommand())
	cmd.AddCommand(newDebugIRCommand())

	return cmd
}

func newDebugDescriptorsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "descriptors <descriptor-set>",
		Short: "Load one descriptor set and dump the revision model",
		Long: `Load a compiled FileDescriptorSet the way generate would and dump the
resulting revision model. Useful when a descriptor set does not merge the
way you expect: the dump shows exactly which fields, presence modes and
types the loader saw.`,
		Args: cobra.ExactArgs(1),
		RunE: runDebugDescriptors,
	}
	cmd.Flags().StringVar(&debugTag, "tag", "rev", "Revision tag to load under")
	cmd.Flags().StringVar(&debugSyntax, "syntax", "", "Force dialect (proto2 or proto3)")
	return cmd
}

func newDebugIRCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ir [message]",
		Short: "Synthesize and dump the accessor IR, optionally for one message",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDebugIR,
	}
}

func runDebugDescriptors(cmd *cobra.Command, args []string) error {
	logging.Initialize("warn", logging.FormatConsole)

	rev, err := schema.NewLoader().LoadInput(schema.Input{
		Tag:    debugTag,
		Path:   args[0],
		Syntax: debugSyntax,
	})
	if err != nil {
		return err
	}

	debugSpew.Fdump(cmd.OutOrStdout(), rev)
	return nil
}

func runDebugIR(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireRevisions(2); err != nil {
		return err
	}
	logging.Initialize("warn", logging.Format(cfg.Log.Format))
	defer logging.Sync()

	inputs := make([]schema.Input, len(cfg.Revisions))
	for i, r := range cfg.Revisions {
		inputs[i] = schema.Input{Tag: r.Tag, Path: r.Descriptor, Syntax: r.Syntax}
	}

	// No cache dir: always synthesize, never touch or lock project state.
	res, err := generator.Run(cmd.Context(), generator.Options{
		Inputs: inputs,
		Merge: merge.Options{
			Mappings:        cfg.Mappings,
			IncludeMessages: cfg.Include.Messages,
			ExcludeMessages: cfg.Exclude.Messages,
			ExcludeFields:   cfg.Exclude.Fields,
		},
	})
	if err != nil {
		return err
	}

	artifacts := res.Artifacts
	if len(args) == 1 {
		artifacts = nil
		want := args[0]
		for _, a := range res.Artifacts {
			if a.Message == want || strings.HasSuffix(a.Message, "."+want) {
				artifacts = append(artifacts, a)
			}
		}
		if len(artifacts) == 0 {
			// Suggest against the short names; typos rarely include the
			// package prefix.
			canonical := make(map[string]string, len(res.Artifacts))
			shorts := make([]string, 0, len(res.Artifacts))
			for _, a := range res.Artifacts {
				short := a.Message
				if i := strings.LastIndex(short, "."); i >= 0 {
					short = short[i+1:]
				}
				if _, ok := canonical[short]; !ok {
					canonical[short] = a.Message
					shorts = append(shorts, short)
				}
			}
			msg := fmt.Sprintf("no merged message named %q", want)
			if suggestions := ui.FindSimilar(want, shorts); len(suggestions) > 0 {
				full := make([]string, len(suggestions))
				for i, s := range suggestions {
					full[i] = canonical[s]
				}
				msg += fmt.Sprintf(", did you mean %s?", strings.Join(full, ", "))
			}
			return fmt.Errorf("%s", msg)
		}
	}

	return synth.NewDumpEmitter(cmd.OutOrStdout()).Emit(cmd.Context(), artifacts)
}
