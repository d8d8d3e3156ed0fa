package graph

import (
	"context"
	"fmt"

	"github.com/lodestar-viz/lodestar/pkg/observability"
)

// DefaultHops is the BFS radius used when the caller gives none.
const DefaultHops = 3

// SubgraphOptions configures [Graph.Subgraph].
type SubgraphOptions struct {
	// StartNodeID seeds the traversal. When empty, the highest-degree node
	// whose category equals SeedCategory is used, ties broken by first-seen
	// order.
	StartNodeID string

	// Hops is the BFS radius. Zero means the seed alone; negative is invalid.
	Hops int

	// SeedCategory selects the implicit seed pool. Defaults to
	// DefaultSeedCategory when empty.
	SeedCategory string
}

// DefaultSubgraphOptions returns options with the standard radius and seed
// category.
func DefaultSubgraphOptions() SubgraphOptions {
	return SubgraphOptions{Hops: DefaultHops, SeedCategory: DefaultSeedCategory}
}

// Subgraph extracts the bounded neighborhood of a seed node as a new Graph.
//
// Every node and edge hop distance is reset, the seed starts at zero, and a
// FIFO breadth-first expansion runs until a dequeued node's distance exceeds
// the radius. A node is accepted the moment it is dequeued within the radius,
// so the result node set is exactly the nodes whose shortest hop distance
// from the seed is at most opts.Hops. Accepted nodes receive fresh contiguous
// dense indices in dequeue order.
//
// The returned graph shares the parent's node and edge objects by reference;
// attribute mutation is visible through both. Edges with an endpoint outside
// the result set are omitted. The child's endpoint-index buffer is built from
// its own index map, independent of the parent's.
//
// Extraction serializes with the parent's structure mutation and layout
// stepping; the returned graph is fully indexed before it becomes observable.
func (g *Graph) Subgraph(opts SubgraphOptions) (*Graph, error) {
	if opts.Hops < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeHops, opts.Hops)
	}
	if opts.SeedCategory == "" {
		opts.SeedCategory = DefaultSeedCategory
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	seed, err := g.pickSeed(opts)
	if err != nil {
		return nil, err
	}

	for _, n := range g.nodes {
		n.Hops = HopsUnvisited
	}
	for _, e := range g.edges {
		e.Hops = HopsUnvisited
	}

	sub := New()
	sub.parent = g
	sub.logger = g.logger

	// FIFO expansion. Neighbors are marked and enqueued unconditionally; the
	// radius cutoff is applied when a node is dequeued, and the queue is
	// distance-monotone, so the first over-radius dequeue ends the walk.
	seed.Hops = 0
	queue := []*Node{seed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.Hops > opts.Hops {
			break
		}
		sub.attachNode(cur)

		for _, nbrID := range g.adjacency[cur.ID] {
			nbr := g.nodes[nbrID]
			if nbr.Hops != HopsUnvisited {
				continue
			}
			nbr.Hops = cur.Hops + 1
			queue = append(queue, nbr)
		}
	}

	// Carry over edges whose endpoints both received subgraph indices,
	// preserving the parent's edge order.
	for _, id := range g.edgeOrder {
		e := g.edges[id]
		si, okS := sub.nodeIndex[e.Source]
		ti, okT := sub.nodeIndex[e.Target]
		if !okS || !okT {
			continue
		}
		e.Hops = max(g.nodes[e.Source].Hops, g.nodes[e.Target].Hops)
		sub.attachEdge(e, si, ti)
	}

	observability.Graph().OnSubgraphExtracted(context.Background(),
		seed.ID, opts.Hops, len(sub.nodes), len(sub.edges))
	return sub, nil
}

// pickSeed resolves the traversal seed. Caller holds g.mu.
func (g *Graph) pickSeed(opts SubgraphOptions) (*Node, error) {
	if opts.StartNodeID != "" {
		n, ok := g.nodes[opts.StartNodeID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, opts.StartNodeID)
		}
		return n, nil
	}

	var best *Node
	bestDegree := -1
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		if n.Category != opts.SeedCategory {
			continue
		}
		if d := len(g.adjacency[id]); d > bestDegree {
			best, bestDegree = n, d
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: category %q", ErrSeedNotFound, opts.SeedCategory)
	}
	return best, nil
}

// attachNode shares an existing node into the subgraph under a fresh dense
// index. The subgraph is unpublished during construction, so no locking.
func (g *Graph) attachNode(n *Node) {
	g.nodes[n.ID] = n
	g.nodeIndex[n.ID] = len(g.nodeOrder)
	g.nodeOrder = append(g.nodeOrder, n.ID)
}

// attachEdge shares an existing edge into the subgraph, extending the
// endpoint-index buffer with the subgraph's own indices.
func (g *Graph) attachEdge(e *Edge, srcIdx, dstIdx int) {
	g.edges[e.ID] = e
	g.edgeIndex[e.ID] = len(g.edgeOrder)
	g.edgeOrder = append(g.edgeOrder, e.ID)
	g.edgeNodeIndex = append(g.edgeNodeIndex, srcIdx, dstIdx)
	g.addNeighbor(e.Source, e.Target)
	g.addNeighbor(e.Target, e.Source)
}
