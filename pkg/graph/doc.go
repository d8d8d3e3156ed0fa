// Package graph implements the mutable typed graph at the heart of Lodestar:
// identifier-keyed node and edge stores, the dense index maps that translate
// them into the flat numeric buffers consumed by the layout engine, and
// breadth-first subgraph extraction for focused exploration of large graphs.
//
// # Identity and indices
//
// Nodes and edges carry caller-assigned string IDs, unique per graph;
// re-adding an existing ID is a warned, non-fatal no-op. Each node and edge
// also receives a dense integer index in insertion order. Because no removal
// path exists, indices stay contiguous from 0 for the lifetime of the graph.
// Subgraphs build independent index spaces, again starting at 0.
//
// # Layouts
//
// A [Layout] attached via [Graph.SetLayout] is sized to the counts observed
// at its construction; topology and layout are jointly versioned, and
// [Graph.StartLayout] rejects a stale layout with ErrLayoutSizeMismatch.
// Stepping is driven externally (see pkg/sim) and is mutually exclusive with
// structure mutation.
//
// # Subgraphs
//
// [Graph.Subgraph] extracts the ≤ k-hop neighborhood of a seed as a new
// Graph that shares the parent's node and edge objects by reference and
// keeps a non-owning provenance pointer to its parent. See the method
// documentation for the exact traversal semantics.
//
// # Serialization
//
// The node-link JSON format ([File]) round-trips graphs for CLI input,
// caching, and API responses.
package graph
