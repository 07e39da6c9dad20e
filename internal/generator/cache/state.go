package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// stateFile is the name of the persisted cache state inside the cache
// directory.
const stateFile = "state.json"

// Status is the cache decision for one generation unit
type Status int

const (
	// Fresh means no cache entry exists; synthesis is required
	Fresh Status = iota
	// Unchanged means inputs and outputs both match; synthesis is skipped
	Unchanged
	// Stale means a fingerprint differs; synthesis is required and the
	// entry gets overwritten
	Stale
	// ForcedStale means the operator requested regeneration regardless of
	// fingerprints
	ForcedStale
)

// String returns the status name used in logs and reports
func (s Status) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Unchanged:
		return "unchanged"
	case Stale:
		return "stale"
	case ForcedStale:
		return "forced-stale"
	}
	return "unknown"
}

// Entry records the fingerprints of one generation unit
type Entry struct {
	InputHash   string    `json:"input_hash"`  // content hash over contributing descriptor files
	OutputHash  string    `json:"output_hash"` // content hash of the produced artifact
	OutputPath  string    `json:"output_path"` // artifact location, relative to the output root
	GeneratedAt time.Time `json:"generated_at"`
}

// State is the persisted cache index. A tool version or configuration
// change invalidates it wholesale: fingerprints computed under different
// settings are not comparable.
type State struct {
	ToolVersion string           `json:"tool_version"`
	ConfigHash  uint64           `json:"config_hash"`
	Entries     map[string]Entry `json:"entries"` // keyed by generation unit tag
}

// newState returns an empty state for the given version and config
func newState(version string, configHash uint64) *State {
	return &State{
		ToolVersion: version,
		ConfigHash:  configHash,
		Entries:     make(map[string]Entry),
	}
}

// ConfigFingerprint hashes serialized configuration into the value stored
// in the state file. xxhash is enough here: the fingerprint only has to
// detect change, not resist collision attacks, and it keeps state loads
// cheap.
func ConfigFingerprint(config []byte) uint64 {
	return xxhash.Sum64(config)
}

// loadState reads the state file from dir. A missing file yields an empty
// state; a corrupt file is reported so the caller can treat every unit as
// stale rather than trusting half-parsed fingerprints.
func loadState(dir, version string, configHash uint64) (*State, error) {
	path := filepath.Join(dir, stateFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newState(version, configHash), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("cache state %s is corrupt: %w", path, err)
	}
	if st.Entries == nil {
		st.Entries = make(map[string]Entry)
	}
	return &st, nil
}

// saveState writes the state file atomically: a temp file in the same
// directory followed by a rename, so a concurrent crash never leaves a
// half-written index behind.
func saveState(dir string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache state: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, stateFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, stateFile)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing cache state: %w", err)
	}
	return nil
}
