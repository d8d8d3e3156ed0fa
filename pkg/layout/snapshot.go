package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// Snapshot is a serializable copy of a layout's read-only accessors at one
// completed step. Unlike the live accessors it owns its buffers, so it can
// outlive the simulation and travel through caches, files, and the HTTP API.
type Snapshot struct {
	Algorithm     string    `json:"algorithm"`
	DOF           int       `json:"dof"`
	Step          int       `json:"step"`
	NodeIDs       []string  `json:"node_ids"`
	Positions     []float64 `json:"positions"`
	Colors        []float64 `json:"colors"`
	Sizes         []float64 `json:"sizes"`
	EdgePositions []float64 `json:"edge_positions"`
	EdgeNodeIndex []int     `json:"edge_node_index"`
}

// Capture copies the layout's buffers into a Snapshot. ids must be the node
// identifiers in dense index order, typically [graph.Graph.NodeIDs]. Capture
// takes no locks; callers stepping the layout concurrently wrap it in
// [graph.Graph.WithLock].
func Capture(algorithm string, l Layout, ids []string) Snapshot {
	return Snapshot{
		Algorithm:     algorithm,
		DOF:           l.DOF(),
		Step:          l.StepCount(),
		NodeIDs:       ids,
		Positions:     slices.Clone(l.NodePositions()),
		Colors:        slices.Clone(l.NodeColors()),
		Sizes:         slices.Clone(l.NodeSizes()),
		EdgePositions: slices.Clone(l.EdgePositions()),
		EdgeNodeIndex: slices.Clone(l.EdgeNodeIndex()),
	}
}

// Position returns the coordinates of the node at dense index i.
func (s Snapshot) Position(i int) []float64 {
	return s.Positions[i*s.DOF : (i+1)*s.DOF]
}

// MarshalSnapshot converts a Snapshot to JSON bytes.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeSnapshotTo(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot decodes JSON bytes into a Snapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// WriteSnapshotFile writes a Snapshot to a JSON file.
func WriteSnapshotFile(s Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeSnapshotTo(s, f)
}

// ReadSnapshotFile reads a JSON snapshot file.
func ReadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open %s: %w", path, err)
	}
	return UnmarshalSnapshot(data)
}

func writeSnapshotTo(s Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}
