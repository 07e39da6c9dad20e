package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/protoverge/protoverge/internal/cli/config"
	"github.com/protoverge/protoverge/internal/generator"
	generrors "github.com/protoverge/protoverge/internal/generator/errors"
	"github.com/protoverge/protoverge/internal/generator/merge"
	"github.com/protoverge/protoverge/internal/generator/policy"
	"github.com/protoverge/protoverge/internal/generator/schema"
	"github.com/protoverge/protoverge/internal/generator/synth"
	"github.com/protoverge/protoverge/internal/logging"
)

var (
	generateForce    bool
	generateJSON     bool
	generateVerbose  bool
	generateDump     bool
	generateWorkers  int
	generateMappings []string
)

// generateSummary is the machine-readable shape of one generate run
type generateSummary struct {
	RunID          string             `json:"run_id"`
	Status         string             `json:"status"`
	Skipped        bool               `json:"skipped"`
	Messages       int                `json:"messages,omitempty"`
	Fields         int                `json:"fields,omitempty"`
	Conflicted     int                `json:"conflicted,omitempty"`
	Conflicts      map[string]int     `json:"conflicts,omitempty"`
	Breaking       int                `json:"breaking,omitempty"`
	Funcs          int                `json:"funcs,omitempty"`
	Workers        int                `json:"workers,omitempty"`
	ContractHits   uint64             `json:"contract_hits"`
	ContractMisses uint64             `json:"contract_misses"`
	Diagnostics    []merge.Diagnostic `json:"diagnostics,omitempty"`
	Artifact       string             `json:"artifact,omitempty"`
	DurationMS     int64              `json:"duration_ms"`
}

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Merge schema revisions and synthesize unified accessors",
		Long: `Load every configured revision's descriptor set, merge them into one
unified schema, classify per-field conflicts, and synthesize the accessor
IR into the cache directory.

Unchanged inputs skip synthesis entirely; --force regenerates anyway.

Examples:
  protoverge generate
  protoverge generate --force --verbose
  protoverge generate --json > report.json
  protoverge generate --mappings renames.yaml`,
		RunE: runGenerate,
	}

	cmd.Flags().BoolVar(&generateForce, "force", false, "Regenerate even when inputs are unchanged")
	cmd.Flags().BoolVar(&generateJSON, "json", false, "Output the run summary as JSON")
	cmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().BoolVar(&generateDump, "dump", false, "Print the synthesized IR to stdout")
	cmd.Flags().IntVar(&generateWorkers, "workers", 0, "Synthesis worker count (0 = one per CPU)")
	cmd.Flags().StringArrayVar(&generateMappings, "mappings", nil, "Additional field-mapping YAML files")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireRevisions(2); err != nil {
		return err
	}

	level := cfg.Log.Level
	if generateVerbose {
		level = "debug"
	}
	logging.Initialize(level, logging.Format(cfg.Log.Format))
	defer logging.Sync()

	runID := uuid.New().String()
	log := logging.For("cli")
	log.Infow("starting generate run",
		"run_id", runID,
		"revisions", len(cfg.Revisions),
		"cache_dir", cfg.Generate.CacheDir)

	mappings := cfg.Mappings
	for _, path := range generateMappings {
		extra, err := config.LoadMappings(path)
		if err != nil {
			return err
		}
		mappings = config.MergeMappings(mappings, extra)
	}

	inputs := make([]schema.Input, len(cfg.Revisions))
	for i, r := range cfg.Revisions {
		inputs[i] = schema.Input{Tag: r.Tag, Path: r.Descriptor, Syntax: r.Syntax}
	}

	workers := cfg.Generate.Workers
	if cmd.Flags().Changed("workers") {
		workers = generateWorkers
	}

	var reg *policy.Registry
	if !cfg.Generate.Builders {
		reg = policy.DefaultRegistry()
		reg.DisableWriters()
	}

	opts := generator.Options{
		Inputs: inputs,
		Merge: merge.Options{
			Mappings:        mappings,
			IncludeMessages: cfg.Include.Messages,
			ExcludeMessages: cfg.Exclude.Messages,
			ExcludeFields:   cfg.Exclude.Fields,
			Strict:          cfg.Generate.Strict,
		},
		Registry:    reg,
		Workers:     workers,
		CacheDir:    cfg.Generate.CacheDir,
		Force:       generateForce || cfg.Generate.Force,
		ToolVersion: Version,
		ConfigBytes: cfg.Fingerprint(),
		LockTimeout: cfg.Generate.LockTimeout,
	}
	if generateDump {
		opts.Emitter = synth.NewDumpEmitter(cmd.OutOrStdout())
	}

	res, err := generator.Run(cmd.Context(), opts)
	if err != nil {
		var ge *generrors.GenError
		if generateJSON && errors.As(err, &ge) {
			if out, jerr := ge.ToJSON(); jerr == nil {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
		}
		return err
	}

	if generateJSON {
		return printGenerateJSON(cmd, runID, res)
	}
	printGenerateSummary(cmd, res)
	return nil
}

func printGenerateJSON(cmd *cobra.Command, runID string, res *generator.Result) error {
	summary := generateSummary{
		RunID:          runID,
		Status:         res.Status.String(),
		Skipped:        res.Skipped(),
		ContractHits:   res.ContractHits,
		ContractMisses: res.ContractMisses,
		Artifact:       res.OutputPath,
		DurationMS:     res.Duration.Milliseconds(),
	}
	if res.Merged != nil {
		summary.Messages = res.Merged.Stats.Messages
		summary.Fields = res.Merged.Stats.Fields
		summary.Conflicted = res.Merged.Stats.Conflicted
		summary.Diagnostics = res.Merged.Diagnostics
		summary.Conflicts = make(map[string]int)
		for c, n := range res.Merged.Stats.ByConflict {
			if c != merge.ConflictNone && n > 0 {
				summary.Conflicts[c.String()] = n
			}
		}
	}
	if res.Report != nil {
		summary.Breaking = res.Report.Totals.Breaking
	}
	if res.Metrics != nil {
		summary.Funcs = res.Metrics.Funcs
		summary.Workers = res.Metrics.Workers
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func printGenerateSummary(cmd *cobra.Command, res *generator.Result) {
	w := cmd.OutOrStdout()
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	warnColor := color.New(color.FgYellow)

	if res.Skipped() {
		successColor.Fprintf(w, "✓ Up to date in %.2fs (inputs unchanged)\n", res.Duration.Seconds())
		infoColor.Fprintf(w, "  Artifact: %s\n", res.OutputPath)
		return
	}

	successColor.Fprintf(w, "✓ Generation complete in %.2fs (%s)\n", res.Duration.Seconds(), res.Status)
	infoColor.Fprintf(w, "  Messages: %d   Fields: %d   Conflicted: %d\n",
		res.Merged.Stats.Messages, res.Merged.Stats.Fields, res.Merged.Stats.Conflicted)

	for _, c := range merge.ConflictOrder {
		if c == merge.ConflictNone {
			continue
		}
		if n := res.Merged.Stats.ByConflict[c]; n > 0 {
			fmt.Fprintf(w, "    %s: %d\n", c, n)
		}
	}

	for _, d := range res.Merged.Diagnostics {
		warnColor.Fprintf(w, "  ! %s\n", d.Detail)
	}

	hits, misses := res.ContractHits, res.ContractMisses
	if total := hits + misses; total > 0 {
		infoColor.Fprintf(w, "  Contract cache: %d/%d hits (%.0f%%)\n",
			hits, total, float64(hits)/float64(total)*100)
	}
	if res.Metrics != nil {
		infoColor.Fprintf(w, "  Synthesized %d funcs on %d workers\n", res.Metrics.Funcs, res.Metrics.Workers)
	}
	if res.OutputPath != "" {
		infoColor.Fprintf(w, "  Artifact: %s\n", res.OutputPath)
	}
}
