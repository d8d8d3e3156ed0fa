// Package render turns layout snapshots into visual artifacts.
//
// The embedding's first two coordinates become pinned Graphviz positions, so
// the neato engine draws exactly what the simulation produced instead of
// re-laying-out the graph.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/lodestar-viz/lodestar/pkg/layout"
)

// posScale converts simulation units to Graphviz points. Embeddings live in
// a small coordinate range around the origin; without scaling the whole
// graph collapses into a few pixels.
const posScale = 10.0

// ToDOT converts a snapshot to Graphviz DOT with pinned node positions.
// Only the first two degrees of freedom are drawn; a third axis is projected
// away.
func ToDOT(s layout.Snapshot) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fontsize=10];\n")
	buf.WriteString("\n")

	for i, id := range s.NodeIDs {
		p := s.Position(i)
		fmt.Fprintf(&buf, "  %q [pos=\"%.2f,%.2f!\", fillcolor=%q, width=%.2f];\n",
			id, p[0]*posScale, p[1]*posScale, hexColor(s.Colors[i*4:i*4+4]), s.Sizes[i]/2)
	}

	buf.WriteString("\n")
	for e := 0; e+1 < len(s.EdgeNodeIndex); e += 2 {
		a := s.NodeIDs[s.EdgeNodeIndex[e]]
		b := s.NodeIDs[s.EdgeNodeIndex[e+1]]
		fmt.Fprintf(&buf, "  %q -- %q;\n", a, b)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// hexColor formats normalized RGBA channels as a #rrggbb string.
// Alpha is dropped; Graphviz fills are opaque here.
func hexColor(rgba []float64) string {
	var sb strings.Builder
	sb.WriteByte('#')
	for _, c := range rgba[:3] {
		v := int(c * 255)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		fmt.Fprintf(&sb, "%02x", v)
	}
	return sb.String()
}

// ToSVG renders a DOT graph to SVG using Graphviz.
func ToSVG(ctx context.Context, dot string) ([]byte, error) {
	return renderFormat(ctx, dot, graphviz.SVG)
}

// ToPNG renders a DOT graph to PNG using Graphviz.
func ToPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderFormat(ctx, dot, graphviz.PNG)
}

func renderFormat(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
