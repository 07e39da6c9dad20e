// Package generator runs the unification pipeline end to end: load the
// revision descriptor sets, derive field contracts, merge, synthesize the
// unified access surface, and keep the incremental cache honest. Commands
// call Run and render the Result.
package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/protoverge/protoverge/internal/generator/cache"
	"github.com/protoverge/protoverge/internal/generator/contract"
	"github.com/protoverge/protoverge/internal/generator/diff"
	"github.com/protoverge/protoverge/internal/generator/merge"
	"github.com/protoverge/protoverge/internal/generator/policy"
	"github.com/protoverge/protoverge/internal/generator/schema"
	"github.com/protoverge/protoverge/internal/generator/synth"
	"github.com/protoverge/protoverge/internal/logging"
)

// ArtifactFile is the name of the printed-IR artifact inside the cache
// directory.
const ArtifactFile = "unified.ir"

// unitTag keys the whole-run cache entry. Merging is global: a change in
// any revision invalidates every unified accessor, so the run caches as a
// single unit over all inputs.
const unitTag = "unified"

// Options configures one pipeline run
type Options struct {
	// Inputs are the revision descriptor sets, oldest first; the last
	// input is the newest revision.
	Inputs []schema.Input

	Merge merge.Options

	// Registry supplies the per-conflict synthesis plans; nil means the
	// default registry.
	Registry *policy.Registry
	// Workers bounds the synthesis pool; <= 0 means one per CPU
	Workers int

	// CacheDir enables the incremental cache when set; the run artifact
	// and the cache state live inside it.
	CacheDir string
	// Force regenerates even when the cache reports no changes
	Force bool
	// ToolVersion invalidates cache state written by other versions
	ToolVersion string
	// ConfigBytes is the serialized effective configuration; any change
	// invalidates the cache state.
	ConfigBytes []byte
	// LockTimeout bounds the wait for the cache directory lock; 0 means
	// the default timeout.
	LockTimeout time.Duration

	// Emitter, when set, receives the synthesized artifacts in addition
	// to the cache artifact.
	Emitter synth.Emitter
}

// Result summarizes one pipeline run. Merged, Artifacts and Report are nil
// when the cache satisfied the run without synthesis.
type Result struct {
	Status    cache.Status
	Merged    *merge.MergedSchema
	Artifacts []*synth.Artifact
	Report    *diff.Report
	Metrics   *synth.Metrics

	// ContractHits and ContractMisses count contract memo-cache traffic
	// during the run.
	ContractHits   uint64
	ContractMisses uint64

	OutputPath string
	Duration   time.Duration
}

// Skipped reports whether the cache satisfied the run without synthesis
func (r *Result) Skipped() bool {
	return r.Status == cache.Unchanged
}

// Run executes the pipeline. With a cache directory configured it holds
// the directory lock for the whole run and consults the prior state first;
// an unchanged state skips everything after input hashing.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	log := logging.For("generator")

	if opts.CacheDir == "" {
		res, err := execute(ctx, opts, "")
		if err != nil {
			return nil, err
		}
		res.Status = cache.Fresh
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	lock, err := cache.Acquire(ctx, opts.CacheDir, opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	mgr := cache.NewManager(opts.CacheDir, opts.ToolVersion, opts.ConfigBytes)
	if err := mgr.Load(); err != nil {
		return nil, err
	}

	unit := cache.Unit{
		Tag:        unitTag,
		InputPaths: inputPaths(opts.Inputs),
		OutputPath: filepath.Join(opts.CacheDir, ArtifactFile),
	}
	decisions, err := mgr.Plan([]cache.Unit{unit}, opts.Force)
	if err != nil {
		return nil, err
	}

	d := decisions[0]
	if !d.NeedsSynthesis() {
		log.Infow("inputs unchanged, skipping synthesis", "artifact", unit.OutputPath)
		return &Result{
			Status:     d.Status,
			OutputPath: unit.OutputPath,
			Duration:   time.Since(start),
		}, nil
	}

	res, err := execute(ctx, opts, unit.OutputPath)
	if err != nil {
		return nil, err
	}
	if err := mgr.Commit(d); err != nil {
		return nil, err
	}
	if err := mgr.Save(); err != nil {
		return nil, err
	}

	res.Status = d.Status
	res.OutputPath = unit.OutputPath
	res.Duration = time.Since(start)
	log.Infow("generation complete",
		"status", res.Status,
		"messages", res.Metrics.Messages,
		"funcs", res.Metrics.Funcs,
		"duration", res.Duration)
	return res, nil
}

// execute runs load, derive, merge, synthesize and report. artifactPath,
// when set, receives the printed IR through an atomic rename.
func execute(ctx context.Context, opts Options, artifactPath string) (*Result, error) {
	set, err := schema.NewLoader().LoadSet(opts.Inputs)
	if err != nil {
		return nil, err
	}

	contracts := contract.NewCache()
	merged, err := merge.New(set, contracts, opts.Merge).Merge()
	if err != nil {
		return nil, err
	}

	reg := opts.Registry
	if reg == nil {
		reg = policy.DefaultRegistry()
	}
	artifacts, metrics, err := synth.New(reg).Run(ctx, merged, opts.Workers)
	if err != nil {
		return nil, err
	}

	if artifactPath != "" {
		if err := writeArtifact(ctx, artifactPath, artifacts); err != nil {
			return nil, err
		}
	}
	if opts.Emitter != nil {
		if err := opts.Emitter.Emit(ctx, artifacts); err != nil {
			return nil, err
		}
	}

	hits, misses := contracts.Stats()
	return &Result{
		Merged:         merged,
		Artifacts:      artifacts,
		Report:         diff.Build(merged, reg),
		Metrics:        metrics,
		ContractHits:   hits,
		ContractMisses: misses,
	}, nil
}

func inputPaths(inputs []schema.Input) []string {
	paths := make([]string, len(inputs))
	for i, in := range inputs {
		paths[i] = in.Path
	}
	return paths
}

// writeArtifact dumps the artifacts to a temp file and renames it into
// place, so the cache never observes a half-written artifact.
func writeArtifact(ctx context.Context, path string, artifacts []*synth.Artifact) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpPath := tmp.Name()

	if err := synth.NewDumpEmitter(tmp).Emit(ctx, artifacts); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing artifact: %w", err)
	}
	return nil
}
