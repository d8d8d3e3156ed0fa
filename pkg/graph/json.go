package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// File is the canonical node-link serialization format:
//
//	{
//	  "nodes": [{"id": "a", "category": "driver"}],
//	  "edges": [{"id": "e1", "source": "a", "target": "b", "strength": 1.5}]
//	}
//
// Used for CLI input files and API responses.
type File struct {
	Nodes []FileNode `json:"nodes"`
	Edges []FileEdge `json:"edges"`
}

// FileNode is the serialized form of a [Node].
type FileNode struct {
	ID       string `json:"id"`
	Category string `json:"category,omitempty"`
}

// FileEdge is the serialized form of an [Edge]. ID may be omitted in input
// files; a fresh UUID is assigned on load.
type FileEdge struct {
	ID       string  `json:"id,omitempty"`
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Category string  `json:"category,omitempty"`
	Strength float64 `json:"strength,omitempty"`
}

// MarshalGraph converts a Graph to JSON bytes in node-link format.
// Nodes and edges appear in dense index order for deterministic output.
func MarshalGraph(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeGraphTo(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraphFile writes a Graph to a JSON file.
// The file is created with 0644 permissions.
func WriteGraphFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeGraphTo(g, f)
}

// WriteGraph writes a Graph as JSON to an io.Writer.
func WriteGraph(g *Graph, w io.Writer) error {
	return writeGraphTo(g, w)
}

// ReadGraphFile reads a JSON node-link file and returns the decoded Graph.
func ReadGraphFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadGraph(f)
}

// ReadGraph decodes a JSON node-link graph from an io.Reader.
// Edges without an ID get a generated UUID. Duplicate IDs follow the usual
// first-writer-wins rule; missing endpoints are an error.
func ReadGraph(r io.Reader) (*Graph, error) {
	var data File
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromFile(data)
}

// FromFile converts the serialization format into a live Graph.
func FromFile(data File) (*Graph, error) {
	g := New()
	for _, fn := range data.Nodes {
		if err := g.AddNode(&Node{ID: fn.ID, Category: fn.Category}); err != nil {
			return nil, fmt.Errorf("add node %s: %w", fn.ID, err)
		}
	}
	for _, fe := range data.Edges {
		id := fe.ID
		if id == "" {
			id = uuid.NewString()
		}
		e := &Edge{
			ID:       id,
			Source:   fe.Source,
			Target:   fe.Target,
			Category: fe.Category,
			Strength: fe.Strength,
		}
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", fe.Source, fe.Target, err)
		}
	}
	return g, nil
}

// ToFile converts a Graph to its serialization format, nodes and edges in
// dense index order.
func ToFile(g *Graph) File {
	nodes := g.Nodes()
	edges := g.Edges()

	out := File{
		Nodes: make([]FileNode, len(nodes)),
		Edges: make([]FileEdge, len(edges)),
	}
	for i, n := range nodes {
		out.Nodes[i] = FileNode{ID: n.ID, Category: n.Category}
	}
	for i, e := range edges {
		out.Edges[i] = FileEdge{
			ID:       e.ID,
			Source:   e.Source,
			Target:   e.Target,
			Category: e.Category,
			Strength: e.Strength,
		}
	}
	return out
}

func writeGraphTo(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToFile(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
