package render

import (
	"strings"
	"testing"

	"github.com/lodestar-viz/lodestar/pkg/layout"
)

func testSnapshot() layout.Snapshot {
	return layout.Snapshot{
		Algorithm: "force-directed",
		DOF:       2,
		Step:      100,
		NodeIDs:   []string{"a", "b", "c"},
		Positions: []float64{
			0, 0,
			1.5, -2,
			-3, 4,
		},
		Colors: []float64{
			0.0, 0.67, 0.76, 1.0,
			1.0, 0.44, 0.26, 1.0,
			1.0, 1.0, 1.0, 1.0,
		},
		Sizes:         []float64{1, 1, 1},
		EdgeNodeIndex: []int{0, 1, 1, 2},
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testSnapshot())

	if !strings.HasPrefix(dot, "graph G {") {
		t.Fatalf("not an undirected graph: %.40s", dot)
	}
	if !strings.Contains(dot, "layout=neato") {
		t.Error("missing neato engine selection")
	}

	// Positions are pinned and scaled.
	if !strings.Contains(dot, `"b" [pos="15.00,-20.00!"`) {
		t.Errorf("node b position missing or unpinned:\n%s", dot)
	}

	// Edges connect by node ID through the endpoint index buffer.
	if !strings.Contains(dot, `"a" -- "b";`) || !strings.Contains(dot, `"b" -- "c";`) {
		t.Errorf("edges missing:\n%s", dot)
	}
}

func TestToDOTColors(t *testing.T) {
	dot := ToDOT(testSnapshot())

	if !strings.Contains(dot, `fillcolor="#00aac1"`) {
		t.Errorf("driver color missing:\n%s", dot)
	}
	if !strings.Contains(dot, `fillcolor="#ffffff"`) {
		t.Errorf("default color missing:\n%s", dot)
	}
}

func TestToDOTDropsThirdAxis(t *testing.T) {
	s := testSnapshot()
	s.DOF = 3
	s.Positions = []float64{
		0, 0, 9,
		1.5, -2, 9,
		-3, 4, 9,
	}

	dot := ToDOT(s)
	if !strings.Contains(dot, `"b" [pos="15.00,-20.00!"`) {
		t.Errorf("third axis should be projected away:\n%s", dot)
	}
}

func TestHexColor(t *testing.T) {
	if got := hexColor([]float64{0, 0, 0, 1}); got != "#000000" {
		t.Errorf("hexColor(black) = %s", got)
	}
	if got := hexColor([]float64{1, 1, 1, 1}); got != "#ffffff" {
		t.Errorf("hexColor(white) = %s", got)
	}
	// Channels above 1 clamp instead of overflowing.
	if got := hexColor([]float64{2, -1, 0.5, 1}); got != "#ff007f" {
		t.Errorf("hexColor(clamped) = %s, want #ff007f", got)
	}
}
