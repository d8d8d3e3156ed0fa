package graph

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestReadGraph(t *testing.T) {
	input := `{
		"nodes": [
			{"id": "a", "category": "driver"},
			{"id": "b", "category": "rider"},
			{"id": "c"}
		],
		"edges": [
			{"id": "e1", "source": "a", "target": "b", "strength": 1.5},
			{"source": "b", "target": "c"}
		]
	}`

	g, err := ReadGraph(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadGraph: %v", err)
	}
	if g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Fatalf("got %d nodes, %d edges; want 3, 2", g.NodeCount(), g.EdgeCount())
	}

	n, _ := g.Node("a")
	if n.Category != CategoryDriver {
		t.Errorf("node a category = %q, want driver", n.Category)
	}
	e, _ := g.Edge("e1")
	if e.Strength != 1.5 {
		t.Errorf("edge e1 strength = %g, want 1.5", e.Strength)
	}

	// The ID-less edge got a generated identifier.
	edges := g.Edges()
	if edges[1].ID == "" {
		t.Error("edge without ID should get a generated one")
	}
}

func TestReadGraphUnknownEndpoint(t *testing.T) {
	input := `{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "ghost"}]}`
	if _, err := ReadGraph(strings.NewReader(input)); err == nil {
		t.Error("edge to unknown node should fail the load")
	}
}

func TestReadGraphInvalidJSON(t *testing.T) {
	if _, err := ReadGraph(strings.NewReader("{not json")); err == nil {
		t.Error("malformed JSON should fail")
	}
}

func TestGraphFileRoundTrip(t *testing.T) {
	g := buildGraph(t,
		[]string{"a:driver", "b:rider", "c:device"},
		[][2]string{{"a", "b"}, {"b", "c"}})

	path := filepath.Join(t.TempDir(), "graph.json")
	if err := WriteGraphFile(g, path); err != nil {
		t.Fatalf("WriteGraphFile: %v", err)
	}

	loaded, err := ReadGraphFile(path)
	if err != nil {
		t.Fatalf("ReadGraphFile: %v", err)
	}
	if loaded.NodeCount() != g.NodeCount() || loaded.EdgeCount() != g.EdgeCount() {
		t.Fatalf("round trip changed counts: %d/%d vs %d/%d",
			loaded.NodeCount(), loaded.EdgeCount(), g.NodeCount(), g.EdgeCount())
	}

	// Dense index order survives the round trip.
	for i, id := range g.NodeIDs() {
		if loaded.NodeIDs()[i] != id {
			t.Errorf("node order changed at %d: %s vs %s", i, loaded.NodeIDs()[i], id)
		}
	}
	n, _ := loaded.Node("c")
	if n.Category != CategoryDevice {
		t.Errorf("category lost in round trip: %q", n.Category)
	}
}

func TestReadGraphFileMissing(t *testing.T) {
	if _, err := ReadGraphFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing file should fail")
	}
}
