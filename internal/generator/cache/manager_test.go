package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCacheFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
}

// managerFixture builds a cache dir plus one unit with its input and output
// files already on disk.
func managerFixture(t *testing.T) (string, Unit) {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "descriptors", "v1.binpb")
	output := filepath.Join(root, "gen", "v1_wrappers.json")
	writeCacheFile(t, input, "descriptor v1")
	writeCacheFile(t, output, "generated v1")
	return root, Unit{
		Tag:        "v1",
		InputPaths: []string{input},
		OutputPath: output,
	}
}

func planOne(t *testing.T, m *Manager, u Unit, force bool) Decision {
	t.Helper()
	decisions, err := m.Plan([]Unit{u}, force)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("Plan() returned %d decisions, expected 1", len(decisions))
	}
	return decisions[0]
}

func TestManagerFirstRunIsFresh(t *testing.T) {
	root, unit := managerFixture(t)
	m := NewManager(filepath.Join(root, "cache"), "0.3.0", []byte("config"))

	d := planOne(t, m, unit, false)
	if d.Status != Fresh {
		t.Errorf("Status = %s, expected %s", d.Status, Fresh)
	}
	if !d.NeedsSynthesis() {
		t.Errorf("NeedsSynthesis() = false for a fresh unit")
	}
	if d.InputHash == "" {
		t.Errorf("InputHash is empty")
	}
}

func TestManagerUnchangedAfterCommit(t *testing.T) {
	root, unit := managerFixture(t)
	cacheDir := filepath.Join(root, "cache")

	m := NewManager(cacheDir, "0.3.0", []byte("config"))
	d := planOne(t, m, unit, false)
	if err := m.Commit(d); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// A second manager over the same directory sees the recorded state
	m2 := NewManager(cacheDir, "0.3.0", []byte("config"))
	d2 := planOne(t, m2, unit, false)
	if d2.Status != Unchanged {
		t.Errorf("Status = %s, expected %s", d2.Status, Unchanged)
	}
	if d2.NeedsSynthesis() {
		t.Errorf("NeedsSynthesis() = true for an unchanged unit")
	}
}

func TestManagerStaleOnInputChange(t *testing.T) {
	root, unit := managerFixture(t)
	cacheDir := filepath.Join(root, "cache")

	m := NewManager(cacheDir, "0.3.0", []byte("config"))
	d := planOne(t, m, unit, false)
	if err := m.Commit(d); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	writeCacheFile(t, unit.InputPaths[0], "descriptor v1 with a new field")

	m2 := NewManager(cacheDir, "0.3.0", []byte("config"))
	if d2 := planOne(t, m2, unit, false); d2.Status != Stale {
		t.Errorf("Status = %s after input change, expected %s", d2.Status, Stale)
	}
}

func TestManagerStaleOnOutputDrift(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, outputPath string)
	}{
		{
			name: "output deleted",
			mutate: func(t *testing.T, outputPath string) {
				if err := os.Remove(outputPath); err != nil {
					t.Fatalf("Remove() error: %v", err)
				}
			},
		},
		{
			name: "output modified",
			mutate: func(t *testing.T, outputPath string) {
				writeCacheFile(t, outputPath, "hand-edited output")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, unit := managerFixture(t)
			cacheDir := filepath.Join(root, "cache")

			m := NewManager(cacheDir, "0.3.0", []byte("config"))
			d := planOne(t, m, unit, false)
			if err := m.Commit(d); err != nil {
				t.Fatalf("Commit() error: %v", err)
			}
			if err := m.Save(); err != nil {
				t.Fatalf("Save() error: %v", err)
			}

			tt.mutate(t, unit.OutputPath)

			m2 := NewManager(cacheDir, "0.3.0", []byte("config"))
			if d2 := planOne(t, m2, unit, false); d2.Status != Stale {
				t.Errorf("Status = %s after output drift, expected %s", d2.Status, Stale)
			}
		})
	}
}

func TestManagerForce(t *testing.T) {
	root, unit := managerFixture(t)
	cacheDir := filepath.Join(root, "cache")

	m := NewManager(cacheDir, "0.3.0", []byte("config"))
	d := planOne(t, m, unit, false)
	if err := m.Commit(d); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	m2 := NewManager(cacheDir, "0.3.0", []byte("config"))
	d2 := planOne(t, m2, unit, true)
	if d2.Status != ForcedStale {
		t.Errorf("Status = %s with force, expected %s", d2.Status, ForcedStale)
	}
	if !d2.NeedsSynthesis() {
		t.Errorf("NeedsSynthesis() = false for a forced unit")
	}
}

func TestManagerDiscardsStateOnVersionChange(t *testing.T) {
	root, unit := managerFixture(t)
	cacheDir := filepath.Join(root, "cache")

	m := NewManager(cacheDir, "0.3.0", []byte("config"))
	d := planOne(t, m, unit, false)
	if err := m.Commit(d); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	m2 := NewManager(cacheDir, "0.4.0", []byte("config"))
	if d2 := planOne(t, m2, unit, false); d2.Status != Fresh {
		t.Errorf("Status = %s after tool upgrade, expected %s", d2.Status, Fresh)
	}
}

func TestManagerDiscardsStateOnConfigChange(t *testing.T) {
	root, unit := managerFixture(t)
	cacheDir := filepath.Join(root, "cache")

	m := NewManager(cacheDir, "0.3.0", []byte("config"))
	d := planOne(t, m, unit, false)
	if err := m.Commit(d); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	m2 := NewManager(cacheDir, "0.3.0", []byte("config with new mapping"))
	if d2 := planOne(t, m2, unit, false); d2.Status != Fresh {
		t.Errorf("Status = %s after config change, expected %s", d2.Status, Fresh)
	}
}

func TestManagerRecoversFromCorruptState(t *testing.T) {
	root, unit := managerFixture(t)
	cacheDir := filepath.Join(root, "cache")
	writeCacheFile(t, filepath.Join(cacheDir, stateFile), "{broken")

	m := NewManager(cacheDir, "0.3.0", []byte("config"))
	if err := m.Load(); err != nil {
		t.Fatalf("Load() should recover from corrupt state, got: %v", err)
	}
	d := planOne(t, m, unit, false)
	if d.Status != Fresh {
		t.Errorf("Status = %s after corrupt state, expected %s", d.Status, Fresh)
	}

	// Committing and saving must repair the state file
	if err := m.Commit(d); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	m2 := NewManager(cacheDir, "0.3.0", []byte("config"))
	if d2 := planOne(t, m2, unit, false); d2.Status != Unchanged {
		t.Errorf("Status = %s after repair, expected %s", d2.Status, Unchanged)
	}
}

func TestManagerInvalidate(t *testing.T) {
	root, unit := managerFixture(t)
	cacheDir := filepath.Join(root, "cache")

	m := NewManager(cacheDir, "0.3.0", []byte("config"))
	d := planOne(t, m, unit, false)
	if err := m.Commit(d); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if err := m.Invalidate(); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, stateFile)); !os.IsNotExist(err) {
		t.Errorf("state file still present after Invalidate()")
	}
	if d2 := planOne(t, m, unit, false); d2.Status != Fresh {
		t.Errorf("Status = %s after Invalidate(), expected %s", d2.Status, Fresh)
	}
}

func TestManagerEntriesCopy(t *testing.T) {
	root, unit := managerFixture(t)
	cacheDir := filepath.Join(root, "cache")

	m := NewManager(cacheDir, "0.3.0", []byte("config"))
	d := planOne(t, m, unit, false)
	if err := m.Commit(d); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	entries := m.Entries()
	if len(entries) != 1 {
		t.Fatalf("Entries() returned %d entries, expected 1", len(entries))
	}
	delete(entries, "v1")
	if len(m.Entries()) != 1 {
		t.Errorf("mutating the Entries() result changed manager state")
	}
}

func TestManagerMultipleUnits(t *testing.T) {
	root := t.TempDir()
	cacheDir := filepath.Join(root, "cache")

	var units []Unit
	for _, tag := range []string{"v1", "v2", "v3"} {
		input := filepath.Join(root, "descriptors", tag+".binpb")
		output := filepath.Join(root, "gen", tag+".json")
		writeCacheFile(t, input, "descriptor "+tag)
		writeCacheFile(t, output, "generated "+tag)
		units = append(units, Unit{Tag: tag, InputPaths: []string{input}, OutputPath: output})
	}

	m := NewManager(cacheDir, "0.3.0", []byte("config"))
	decisions, err := m.Plan(units, false)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	for _, d := range decisions {
		if err := m.Commit(d); err != nil {
			t.Fatalf("Commit(%s) error: %v", d.Unit.Tag, err)
		}
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Touch only v2; only v2 should regenerate
	writeCacheFile(t, units[1].InputPaths[0], "descriptor v2 changed")

	m2 := NewManager(cacheDir, "0.3.0", []byte("config"))
	decisions, err = m2.Plan(units, false)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	want := map[string]Status{"v1": Unchanged, "v2": Stale, "v3": Unchanged}
	for _, d := range decisions {
		if d.Status != want[d.Unit.Tag] {
			t.Errorf("unit %s: Status = %s, expected %s", d.Unit.Tag, d.Status, want[d.Unit.Tag])
		}
	}
}
