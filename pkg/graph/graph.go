package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/lodestar-viz/lodestar/pkg/observability"
)

var (
	// ErrEmptyNodeID is returned by [Graph.AddNode] when the node ID is empty.
	// All nodes must have non-empty identifiers.
	ErrEmptyNodeID = errors.New("graph: node ID must not be empty")

	// ErrEmptyEdgeID is returned by [Graph.AddEdge] when the edge ID is empty.
	ErrEmptyEdgeID = errors.New("graph: edge ID must not be empty")

	// ErrUnknownEndpoint is returned by [Graph.AddEdge] when either endpoint
	// does not exist in the graph's node map.
	ErrUnknownEndpoint = errors.New("graph: edge endpoint not in graph")

	// ErrNodeNotFound is returned by [Graph.Subgraph] when an explicit start
	// node ID is not present in the graph.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrSeedNotFound is returned by [Graph.Subgraph] when no start node was
	// given and no node carries the seed category.
	ErrSeedNotFound = errors.New("graph: no seed-eligible node found")

	// ErrNegativeHops is returned by [Graph.Subgraph] for a negative radius.
	ErrNegativeHops = errors.New("graph: hops must be non-negative")

	// ErrNoLayout is returned by [Graph.StartLayout] and [Graph.StepLayout]
	// when no layout has been attached.
	ErrNoLayout = errors.New("graph: no layout attached")

	// ErrLayoutSizeMismatch is returned by [Graph.StartLayout] when the
	// attached layout's buffers were sized for different node/edge counts
	// than the graph currently holds. A layout is jointly versioned with the
	// topology it was built from; stepping a stale layout is undefined.
	ErrLayoutSizeMismatch = errors.New("graph: layout buffers do not match graph counts")
)

// Node category tags. Categories drive seed selection, mass assignment, and
// the color palette; unrecognized categories fall back to neutral defaults.
const (
	CategoryDriver = "driver"
	CategoryRider  = "rider"
	CategoryDevice = "device"
)

// DefaultSeedCategory is the category used to pick an implicit BFS seed when
// no start node is given.
const DefaultSeedCategory = CategoryDriver

// HopsUnvisited marks a node or edge not reached by the most recent traversal.
const HopsUnvisited = -1

// Node is a vertex in the graph. Adjacency and degree are derived through the
// owning [Graph] rather than stored on the node, so nodes hold no references
// back into the structure.
//
// The zero value is not usable - ID must be set before adding to a Graph.
type Node struct {
	ID       string // Unique identifier, assigned by the caller
	Category string // Styling/seeding tag (e.g. "driver", "rider", "device")

	// Hops is the hop distance from the seed of the most recent [Graph.Subgraph]
	// traversal, or HopsUnvisited. Transient bookkeeping, reset per extraction.
	Hops int
}

// Edge is an undirected connection between two nodes. Endpoints are stored as
// IDs and resolved through the owning Graph.
type Edge struct {
	ID       string  // Unique identifier
	Source   string  // One endpoint node ID
	Target   string  // The other endpoint node ID
	Category string  // Styling tag
	Strength float64 // Spring strength attribute

	// Hops mirrors Node.Hops for the most recent traversal.
	Hops int
}

// Layout is the capability a graph needs from an attached layout engine:
// a single discrete step plus the counts its buffers were sized for.
// Concrete implementations live in pkg/layout.
type Layout interface {
	Step() error
	NodeCount() int
	EdgeCount() int
}

// Graph owns node and edge collections keyed by ID, the dense index maps
// derived from them, and the flat edge-endpoint buffer consumed by the force
// kernel. Dense indices are assigned in insertion order and stay contiguous
// because no removal path exists.
//
// All exported methods are safe for concurrent use. Layout stepping and
// structure mutation are mutually exclusive via an internal lock.
type Graph struct {
	mu sync.Mutex

	nodes     map[string]*Node
	edges     map[string]*Edge
	adjacency map[string][]string // node ID -> neighbor IDs, deduplicated

	nodeIndex map[string]int // node ID -> dense index
	nodeOrder []string       // dense index -> node ID
	edgeIndex map[string]int // edge ID -> dense index
	edgeOrder []string       // dense index -> edge ID

	// edgeNodeIndex holds two node indices per indexed edge, in edge index
	// order. The force kernel consumes this buffer directly.
	edgeNodeIndex []int

	parent *Graph // provenance for subgraphs, nil for root graphs

	layout  Layout
	running atomic.Bool

	warned map[string]bool // duplicate-ID warnings already emitted
	logger *log.Logger
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		edges:     make(map[string]*Edge),
		adjacency: make(map[string][]string),
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[string]int),
		warned:    make(map[string]bool),
	}
}

// SetLogger installs the logger used for duplicate-ID warnings.
// Without one, warnings go to the charmbracelet default logger.
func (g *Graph) SetLogger(l *log.Logger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logger = l
}

func (g *Graph) log() *log.Logger {
	if g.logger != nil {
		return g.logger
	}
	return log.Default()
}

// warnOnce emits msg at warn level the first time it is seen on this graph.
// Duplicate-ID insertions are non-fatal, so repeated attempts must not flood
// the log.
func (g *Graph) warnOnce(msg string) {
	if g.warned[msg] {
		return
	}
	g.warned[msg] = true
	g.log().Warn(msg)
}

// AddNode inserts a node. Re-adding an existing ID is a warned no-op: the
// first writer wins and the graph is left unchanged. Returns ErrEmptyNodeID
// for a missing identifier.
func (g *Graph) AddNode(n *Node) error {
	if n == nil || n.ID == "" {
		return ErrEmptyNodeID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.ID]; exists {
		g.warnOnce(fmt.Sprintf("node %q already in graph, ignoring", n.ID))
		observability.Graph().OnDuplicateID(context.Background(), "node", n.ID)
		return nil
	}

	n.Hops = HopsUnvisited
	g.nodes[n.ID] = n
	g.nodeIndex[n.ID] = len(g.nodeOrder)
	g.nodeOrder = append(g.nodeOrder, n.ID)
	return nil
}

// AddEdge inserts an undirected edge between two existing nodes and extends
// the flat endpoint-index buffer. Re-adding an existing ID is a warned no-op.
// Returns ErrEmptyEdgeID for a missing identifier or ErrUnknownEndpoint when
// either endpoint is absent.
func (g *Graph) AddEdge(e *Edge) error {
	if e == nil || e.ID == "" {
		return ErrEmptyEdgeID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src, okS := g.nodeIndex[e.Source]
	dst, okD := g.nodeIndex[e.Target]
	if !okS {
		return fmt.Errorf("%w: %q", ErrUnknownEndpoint, e.Source)
	}
	if !okD {
		return fmt.Errorf("%w: %q", ErrUnknownEndpoint, e.Target)
	}

	if _, exists := g.edges[e.ID]; exists {
		g.warnOnce(fmt.Sprintf("edge %q already in graph, ignoring", e.ID))
		observability.Graph().OnDuplicateID(context.Background(), "edge", e.ID)
		return nil
	}

	e.Hops = HopsUnvisited
	g.edges[e.ID] = e
	g.edgeIndex[e.ID] = len(g.edgeOrder)
	g.edgeOrder = append(g.edgeOrder, e.ID)
	g.edgeNodeIndex = append(g.edgeNodeIndex, src, dst)

	g.addNeighbor(e.Source, e.Target)
	g.addNeighbor(e.Target, e.Source)
	return nil
}

// addNeighbor appends to the adjacency list, keeping it duplicate-free so
// degree counts adjacent nodes, not parallel edges.
func (g *Graph) addNeighbor(id, neighbor string) {
	if slices.Contains(g.adjacency[id], neighbor) {
		return
	}
	g.adjacency[id] = append(g.adjacency[id], neighbor)
}

// Node returns the node with the given ID and true, or nil and false.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge with the given ID and true, or nil and false.
func (g *Graph) Edge(id string) (*Edge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.edges[id]
	return e, ok
}

// Nodes returns all nodes in dense index order.
func (g *Graph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	nodes := make([]*Node, len(g.nodeOrder))
	for i, id := range g.nodeOrder {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// NodeIDs returns all node identifiers in dense index order.
func (g *Graph) NodeIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.nodeOrder)
}

// Edges returns all edges in dense index order.
func (g *Graph) Edges() []*Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	edges := make([]*Edge, len(g.edgeOrder))
	for i, id := range g.edgeOrder {
		edges[i] = g.edges[id]
	}
	return edges
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.edges)
}

// Neighbors returns the IDs adjacent to the node. The returned slice is a
// read-only view and must not be modified.
func (g *Graph) Neighbors(id string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.adjacency[id]
}

// Degree returns the number of distinct nodes adjacent to id.
// Returns 0 if the node doesn't exist.
func (g *Graph) Degree(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.adjacency[id])
}

// NodeIndex returns the dense index assigned to the node and true,
// or 0 and false if the node is absent.
func (g *Graph) NodeIndex(id string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.nodeIndex[id]
	return i, ok
}

// EdgeIndex returns the dense index assigned to the edge and true,
// or 0 and false if the edge is absent.
func (g *Graph) EdgeIndex(id string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i, ok := g.edgeIndex[id]
	return i, ok
}

// EdgeNodeIndex exposes the flat endpoint-index buffer: two node indices per
// edge, in edge index order. The layout engine consumes it directly; callers
// must treat it as read-only.
func (g *Graph) EdgeNodeIndex() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.edgeNodeIndex
}

// Parent returns the graph this subgraph was extracted from, or nil for a
// root graph. The reference is provenance only, never ownership.
func (g *Graph) Parent() *Graph {
	return g.parent
}

// SetLayout installs the active layout. Sizing against the current counts is
// deliberately not validated here - [Graph.StartLayout] fails fast on a
// mismatch instead, so a layout can be attached before the driver exists.
func (g *Graph) SetLayout(l Layout) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.layout = l
}

// StartLayout validates the attached layout against the graph's current
// counts and sets the running flag consulted by the stepping driver.
// Idempotent. Returns ErrNoLayout or ErrLayoutSizeMismatch, both of which
// block the simulation from starting.
func (g *Graph) StartLayout() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.layout == nil {
		return ErrNoLayout
	}
	if g.layout.NodeCount() != len(g.nodes) || g.layout.EdgeCount() != len(g.edges) {
		return fmt.Errorf("%w: layout %d/%d, graph %d/%d",
			ErrLayoutSizeMismatch,
			g.layout.NodeCount(), g.layout.EdgeCount(),
			len(g.nodes), len(g.edges))
	}
	g.running.Store(true)
	return nil
}

// PauseLayout clears the running flag. Idempotent. The pause takes effect no
// later than the next driver tick; a step already executing runs to
// completion.
func (g *Graph) PauseLayout() {
	g.running.Store(false)
}

// LayoutRunning reports whether the simulation is currently unpaused.
func (g *Graph) LayoutRunning() bool {
	return g.running.Load()
}

// StepLayout advances the attached layout by one step, mutually exclusive
// with graph structure mutation. The stepping driver calls this once per tick
// while the running flag is set; steps are never re-entered.
func (g *Graph) StepLayout() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.layout == nil {
		return ErrNoLayout
	}
	return g.layout.Step()
}

// WithLock runs fn mutually exclusive with structure mutation and layout
// stepping. Consumers that assemble multi-buffer reads (position snapshots,
// live stats) use this to see a single consistent step. fn must not call
// other Graph methods.
func (g *Graph) WithLock(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}
