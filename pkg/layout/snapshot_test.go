package layout

import (
	"path/filepath"
	"testing"
)

func TestCaptureOwnsBuffers(t *testing.T) {
	g := testGraph(t, []string{"a:driver", "b"}, [][2]string{{"a", "b"}})
	l, err := NewForceDirected(g, Options{DOF: 2})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}

	snap := Capture(ForceDirectedName, l, g.NodeIDs())
	if snap.Algorithm != ForceDirectedName || snap.DOF != 2 {
		t.Fatalf("snapshot header = %q/%d", snap.Algorithm, snap.DOF)
	}
	if len(snap.NodeIDs) != 2 || snap.NodeIDs[0] != "a" {
		t.Fatalf("NodeIDs = %v", snap.NodeIDs)
	}

	// Stepping after capture must not move the snapshot.
	before := snap.Position(0)[0]
	for i := 0; i < 5; i++ {
		if err := l.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if snap.Position(0)[0] != before {
		t.Error("snapshot positions alias the live buffer")
	}
	if snap.Step != 0 {
		t.Errorf("snapshot step = %d, want 0", snap.Step)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := testGraph(t, []string{"a:driver", "b:rider"}, [][2]string{{"a", "b"}})
	l, err := NewForceDirected(g, Options{})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := l.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	snap := Capture(ForceDirectedName, l, g.NodeIDs())
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := WriteSnapshotFile(snap, path); err != nil {
		t.Fatalf("WriteSnapshotFile: %v", err)
	}

	loaded, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("ReadSnapshotFile: %v", err)
	}
	if loaded.Step != 3 || loaded.DOF != snap.DOF {
		t.Errorf("header changed: step %d dof %d", loaded.Step, loaded.DOF)
	}
	if len(loaded.Positions) != len(snap.Positions) {
		t.Fatalf("positions length changed: %d vs %d", len(loaded.Positions), len(snap.Positions))
	}
	for i := range snap.Positions {
		if loaded.Positions[i] != snap.Positions[i] {
			t.Fatalf("position %d changed: %g vs %g", i, loaded.Positions[i], snap.Positions[i])
		}
	}
}

func TestUnmarshalSnapshotInvalid(t *testing.T) {
	if _, err := UnmarshalSnapshot([]byte("{broken")); err == nil {
		t.Error("malformed snapshot should fail")
	}
}
