package layout

import (
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/lodestar-viz/lodestar/pkg/graph"
)

var testLogger = log.NewWithOptions(io.Discard, log.Options{})

// testGraph builds a small typed graph for layout tests.
func testGraph(t *testing.T, nodes []string, edges [][2]string) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, spec := range nodes {
		id, category := spec, ""
		for i := range spec {
			if spec[i] == ':' {
				id, category = spec[:i], spec[i+1:]
				break
			}
		}
		if err := g.AddNode(&graph.Node{ID: id, Category: category}); err != nil {
			t.Fatalf("AddNode(%s): %v", id, err)
		}
	}
	for i, e := range edges {
		if err := g.AddEdge(&graph.Edge{ID: fmt.Sprintf("e%d", i), Source: e[0], Target: e[1]}); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	return g
}

func TestNewForceDirectedSizing(t *testing.T) {
	g := testGraph(t, []string{"a:driver", "b:rider", "c"}, [][2]string{{"a", "b"}, {"b", "c"}})

	l, err := NewForceDirected(g, Options{})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}

	if l.NodeCount() != 3 || l.EdgeCount() != 2 {
		t.Fatalf("counts = %d/%d, want 3/2", l.NodeCount(), l.EdgeCount())
	}
	if l.DOF() != 3 {
		t.Errorf("default DOF = %d, want 3", l.DOF())
	}
	if len(l.NodePositions()) != 9 {
		t.Errorf("positions length = %d, want 9", len(l.NodePositions()))
	}
	if len(l.NodeColors()) != 12 {
		t.Errorf("colors length = %d, want 12", len(l.NodeColors()))
	}
	if len(l.EdgePositions()) != 12 {
		t.Errorf("edge positions length = %d, want 12", len(l.EdgePositions()))
	}
}

func TestNewForceDirectedDOF(t *testing.T) {
	g := testGraph(t, []string{"a"}, nil)

	for _, dof := range []int{2, 3} {
		if _, err := NewForceDirected(g, Options{DOF: dof}); err != nil {
			t.Errorf("DOF %d should be accepted: %v", dof, err)
		}
	}
	for _, dof := range []int{1, 4, -1} {
		if _, err := NewForceDirected(g, Options{DOF: dof}); err == nil {
			t.Errorf("DOF %d should be rejected", dof)
		}
	}
}

func TestMassAssignment(t *testing.T) {
	// hub has degree 3; device doubles the degree, others take a tenth.
	g := testGraph(t,
		[]string{"hub:device", "d:driver", "r:rider", "p"},
		[][2]string{{"hub", "d"}, {"hub", "r"}, {"hub", "p"}})

	l, err := NewForceDirected(g, Options{})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}

	if got := l.masses[0]; got != 6.0 {
		t.Errorf("device mass = %g, want 6", got)
	}
	if got := l.masses[1]; math.Abs(got-0.1) > 1e-12 {
		t.Errorf("driver mass = %g, want 0.1", got)
	}
}

func TestCategoryColors(t *testing.T) {
	g := testGraph(t, []string{"d:driver", "r:rider", "v:device", "x:mystery"}, nil)

	l, err := NewForceDirected(g, Options{})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}

	colors := l.NodeColors()
	tests := []struct {
		idx  int
		want [4]float64
	}{
		{0, [4]float64{0.0, 0.67, 0.76, 1.0}},
		{1, [4]float64{1.0, 0.44, 0.26, 1.0}},
		{2, [4]float64{1.0, 0.76, 0.03, 1.0}},
		{3, [4]float64{1.0, 1.0, 1.0, 1.0}}, // unknown category renders white
	}
	for _, tt := range tests {
		for k := 0; k < 4; k++ {
			if colors[tt.idx*4+k] != tt.want[k] {
				t.Errorf("color[%d][%d] = %g, want %g", tt.idx, k, colors[tt.idx*4+k], tt.want[k])
			}
		}
	}
}

func TestStepStaysFinite(t *testing.T) {
	g := testGraph(t,
		[]string{"a:driver", "b:rider", "c:device", "d", "e"},
		[][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "e"}, {"d", "e"}})

	l, err := NewForceDirected(g, Options{Logger: testLogger})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}

	for i := 0; i < 500; i++ {
		if err := l.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if l.StepCount() != 500 {
		t.Errorf("StepCount = %d, want 500", l.StepCount())
	}

	for s, p := range l.NodePositions() {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("position slot %d is not finite: %g", s, p)
		}
	}
	for s, v := range l.velocities {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("velocity slot %d is not finite: %g", s, v)
		}
	}
}

func TestStepRecentersOnOrigin(t *testing.T) {
	g := testGraph(t, []string{"a:driver", "b", "c", "d"},
		[][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}})

	l, err := NewForceDirected(g, Options{})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := l.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	dof := l.DOF()
	for k := 0; k < dof; k++ {
		var mean float64
		for i := 0; i < l.NodeCount(); i++ {
			mean += l.NodePositions()[i*dof+k]
		}
		mean /= float64(l.NodeCount())
		if math.Abs(mean) > 1e-9 {
			t.Errorf("axis %d centroid = %g, want ~0", k, mean)
		}
	}
}

func TestCoincidentNodesGuarded(t *testing.T) {
	g := testGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})

	l, err := NewForceDirected(g, Options{Logger: testLogger})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}

	// Force both nodes onto the same point. The pair must be skipped for the
	// step instead of dividing by zero.
	for s := range l.positions {
		l.positions[s] = 0
		l.velocities[s] = 0
	}
	if err := l.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	for s, p := range l.NodePositions() {
		if math.IsNaN(p) {
			t.Fatalf("position slot %d became NaN", s)
		}
	}
}

func TestTimestepAnnealing(t *testing.T) {
	g := testGraph(t, []string{"a"}, nil)

	tuning := DefaultTuning()
	tuning.AnnealAfter = 2
	tuning.MaxTimestep = 0.02

	l, err := NewForceDirected(g, Options{Tuning: tuning})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}

	initial := l.timestep
	for i := 0; i < 2; i++ {
		if err := l.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if l.timestep != initial {
		t.Errorf("timestep grew before the anneal threshold: %g", l.timestep)
	}

	for i := 0; i < 1000; i++ {
		if err := l.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if l.timestep > tuning.MaxTimestep {
		t.Errorf("timestep %g exceeds cap %g", l.timestep, tuning.MaxTimestep)
	}
	if l.timestep <= initial {
		t.Errorf("timestep never annealed past %g", initial)
	}
}

func TestTwoNodeRestLengthFixedPoint(t *testing.T) {
	g := testGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})

	// With repulsion off, the spring is the only force and its fixed point is
	// exactly the rest length.
	tuning := DefaultTuning()
	tuning.Repulsion = 0

	l, err := NewForceDirected(g, Options{DOF: 2, Tuning: tuning})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}

	for s := range l.positions {
		l.positions[s] = 0
		l.velocities[s] = 0
	}
	l.positions[0] = -tuning.RestLength / 2
	l.positions[2] = tuning.RestLength / 2

	for i := 0; i < 50; i++ {
		if err := l.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}

	if got := l.positions[0]; math.Abs(got+tuning.RestLength/2) > 1e-9 {
		t.Errorf("node a drifted from the fixed point: x = %g", got)
	}
	if got := l.positions[2]; math.Abs(got-tuning.RestLength/2) > 1e-9 {
		t.Errorf("node b drifted from the fixed point: x = %g", got)
	}
}

func TestEdgePositionsTrackEndpoints(t *testing.T) {
	g := testGraph(t, []string{"a", "b"}, [][2]string{{"a", "b"}})

	l, err := NewForceDirected(g, Options{DOF: 2})
	if err != nil {
		t.Fatalf("NewForceDirected: %v", err)
	}
	if err := l.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	pos := l.NodePositions()
	ep := l.EdgePositions()
	for k := 0; k < 2; k++ {
		if ep[k] != pos[k] {
			t.Errorf("edge endpoint 0 axis %d = %g, want %g", k, ep[k], pos[k])
		}
		if ep[2+k] != pos[2+k] {
			t.Errorf("edge endpoint 1 axis %d = %g, want %g", k, ep[2+k], pos[2+k])
		}
	}
}

func TestRegistry(t *testing.T) {
	names := Names()
	found := false
	for _, n := range names {
		if n == ForceDirectedName {
			found = true
		}
	}
	if !found {
		t.Fatalf("registry %v missing %q", names, ForceDirectedName)
	}

	g := testGraph(t, []string{"a"}, nil)
	if _, err := New(ForceDirectedName, g, Options{}); err != nil {
		t.Errorf("New(%q): %v", ForceDirectedName, err)
	}
	if _, err := New("no-such-layout", g, Options{}); err == nil {
		t.Error("unknown algorithm should fail")
	}
}
