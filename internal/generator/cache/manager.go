package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/protoverge/protoverge/internal/logging"
)

// Unit is one independently cacheable generation unit: a revision's
// descriptor set and the artifact generated from it.
type Unit struct {
	Tag        string   // unit key in the state file
	InputPaths []string // contributing descriptor files
	OutputPath string   // produced artifact
}

// Decision is the cache verdict for one unit. InputHash is computed during
// planning and reused on commit so inputs are hashed exactly once per run.
type Decision struct {
	Unit      Unit
	Status    Status
	InputHash string
}

// NeedsSynthesis reports whether the unit must be regenerated
func (d Decision) NeedsSynthesis() bool {
	return d.Status != Unchanged
}

// Manager plans and records cache decisions against the state file in one
// cache directory. It does not lock the directory itself; callers hold the
// directory Lock across Load, Plan and Commit of one run.
type Manager struct {
	dir     string
	version string
	confSum uint64
	hasher  *Hasher
	state   *State
	log     *zap.SugaredLogger
}

// NewManager creates a manager for a cache directory. config is the
// serialized generation configuration; any change to it invalidates the
// whole state.
func NewManager(dir, toolVersion string, config []byte) *Manager {
	return &Manager{
		dir:     dir,
		version: toolVersion,
		confSum: ConfigFingerprint(config),
		hasher:  NewHasher(),
		log:     logging.For("cache"),
	}
}

// Load reads the state file. A corrupt state is not trusted and not fatal:
// the manager starts from an empty state and every unit regenerates. A
// tool version or configuration change discards the state for the same
// reason.
func (m *Manager) Load() error {
	st, err := loadState(m.dir, m.version, m.confSum)
	if err != nil {
		m.log.Warnw("discarding unreadable cache state", "dir", m.dir, "error", err)
		m.state = newState(m.version, m.confSum)
		return nil
	}
	if st.ToolVersion != m.version || st.ConfigHash != m.confSum {
		m.log.Infow("cache state predates current tool or configuration, regenerating",
			"dir", m.dir,
			"state_version", st.ToolVersion,
			"tool_version", m.version,
		)
		m.state = newState(m.version, m.confSum)
		return nil
	}
	m.state = st
	return nil
}

// Plan decides, per unit, whether synthesis can be skipped
func (m *Manager) Plan(units []Unit, force bool) ([]Decision, error) {
	if m.state == nil {
		if err := m.Load(); err != nil {
			return nil, err
		}
	}

	decisions := make([]Decision, 0, len(units))
	for _, u := range units {
		d, err := m.planUnit(u, force)
		if err != nil {
			return nil, err
		}
		m.log.Debugw("cache decision", "unit", u.Tag, "status", d.Status)
		decisions = append(decisions, d)
	}
	return decisions, nil
}

func (m *Manager) planUnit(u Unit, force bool) (Decision, error) {
	inputHash, err := m.hasher.HashFiles(u.InputPaths)
	if err != nil {
		return Decision{}, fmt.Errorf("hashing inputs of %s: %w", u.Tag, err)
	}
	d := Decision{Unit: u, InputHash: inputHash}

	if force {
		d.Status = ForcedStale
		return d, nil
	}
	entry, ok := m.state.Entries[u.Tag]
	if !ok {
		d.Status = Fresh
		return d, nil
	}
	if entry.InputHash != inputHash {
		d.Status = Stale
		return d, nil
	}

	// Inputs match; trust the entry only if the recorded output still
	// exists unmodified. A crash mid-write leaves a mismatch here and the
	// unit self-heals by regenerating.
	outHash, err := m.hasher.HashFile(u.OutputPath)
	if err != nil || outHash != entry.OutputHash {
		d.Status = Stale
		return d, nil
	}
	d.Status = Unchanged
	return d, nil
}

// Commit records a regenerated unit. The artifact must already be on disk
// at the unit's output path.
func (m *Manager) Commit(d Decision) error {
	outHash, err := m.hasher.HashFile(d.Unit.OutputPath)
	if err != nil {
		return fmt.Errorf("hashing output of %s: %w", d.Unit.Tag, err)
	}
	m.state.Entries[d.Unit.Tag] = Entry{
		InputHash:   d.InputHash,
		OutputHash:  outHash,
		OutputPath:  d.Unit.OutputPath,
		GeneratedAt: time.Now().UTC(),
	}
	return nil
}

// Save persists the state file atomically
func (m *Manager) Save() error {
	if m.state == nil {
		return nil
	}
	return saveState(m.dir, m.state)
}

// Invalidate clears every entry and removes the state file
func (m *Manager) Invalidate() error {
	m.state = newState(m.version, m.confSum)
	path := m.statePath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache state: %w", err)
	}
	return nil
}

// Entries returns a copy of the current state entries for status reporting
func (m *Manager) Entries() map[string]Entry {
	if m.state == nil {
		if err := m.Load(); err != nil {
			return nil
		}
	}
	out := make(map[string]Entry, len(m.state.Entries))
	for k, v := range m.state.Entries {
		out[k] = v
	}
	return out
}

// Dir returns the cache directory
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) statePath() string {
	return filepath.Join(m.dir, stateFile)
}
