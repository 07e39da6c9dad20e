package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/protoverge/protoverge/internal/cli/config"
	"github.com/protoverge/protoverge/internal/cli/ui"
	"github.com/protoverge/protoverge/internal/generator/cache"
)

// NewCacheCommand creates the cache command group
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the incremental generation cache",
	}

	cmd.AddCommand(newCacheStatusCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache state and lock status",
		RunE:  runCacheStatus,
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop cached state, forcing the next generate to run fresh",
		RunE:  runCacheClear,
	}
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir := cfg.Generate.CacheDir
	w := cmd.OutOrStdout()

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Fprintf(w, "No cache at %s (nothing generated yet)\n", dir)
		return nil
	}

	locked := "no"
	if cache.IsLocked(dir) {
		locked = "yes (another run in progress)"
	}

	mgr := cache.NewManager(dir, Version, cfg.Fingerprint())
	if err := mgr.Load(); err != nil {
		return err
	}
	entries := mgr.Entries()

	kv := ui.NewKeyValueTable(w)
	kv.Add("Directory", dir)
	kv.Add("Locked", locked)
	kv.Add("Entries", fmt.Sprintf("%d", len(entries)))
	kv.Render()

	if len(entries) == 0 {
		return nil
	}

	tags := make([]string, 0, len(entries))
	for tag := range entries {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	fmt.Fprintln(w)
	table := ui.NewTable(w, "Unit", "Input Hash", "Generated At", "Artifact")
	for _, tag := range tags {
		e := entries[tag]
		table.AddRow(tag, shortHash(e.InputHash), e.GeneratedAt.Format("2006-01-02 15:04:05"), e.OutputPath)
	}
	table.Render()
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir := cfg.Generate.CacheDir

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "No cache at %s, nothing to clear\n", dir)
		return nil
	}

	// Clearing while a generate run holds the directory would race its
	// state write, so take the lock first.
	lock, err := cache.TryAcquire(dir)
	if err != nil {
		return err
	}
	if lock == nil {
		return fmt.Errorf("cache at %s is locked by another run, try again later", dir)
	}
	defer lock.Release()

	mgr := cache.NewManager(dir, Version, cfg.Fingerprint())
	if err := mgr.Invalidate(); err != nil {
		return err
	}

	successColor := color.New(color.FgGreen, color.Bold)
	successColor.Fprintf(cmd.OutOrStdout(), "✓ Cache cleared at %s\n", dir)
	return nil
}

// shortHash truncates a content hash for table display
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
