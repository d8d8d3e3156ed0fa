package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lodestar-viz/lodestar/pkg/graph"
)

type countingLayout struct {
	nodes, edges int
	steps        int
}

func (c *countingLayout) Step() error    { c.steps++; return nil }
func (c *countingLayout) NodeCount() int { return c.nodes }
func (c *countingLayout) EdgeCount() int { return c.edges }

func newTestGraph(t *testing.T) (*graph.Graph, *countingLayout) {
	t.Helper()
	g := graph.New()
	if err := g.AddNode(&graph.Node{ID: "a"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	l := &countingLayout{nodes: 1}
	g.SetLayout(l)
	return g, l
}

func TestSteps(t *testing.T) {
	g, l := newTestGraph(t)
	d := NewDriver(g)

	if err := d.Steps(context.Background(), 25); err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if l.steps != 25 {
		t.Errorf("steps = %d, want 25", l.steps)
	}
}

func TestStepsCancellation(t *testing.T) {
	g, l := newTestGraph(t)
	d := NewDriver(g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Steps(ctx, 100); !errors.Is(err, context.Canceled) {
		t.Fatalf("Steps on cancelled context = %v, want Canceled", err)
	}
	if l.steps != 0 {
		t.Errorf("steps = %d, want 0", l.steps)
	}
}

func TestTickRespectsPause(t *testing.T) {
	g, l := newTestGraph(t)
	d := NewDriver(g)

	// Paused: a tick is a no-op.
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if l.steps != 0 {
		t.Errorf("paused tick stepped the layout")
	}

	if err := g.StartLayout(); err != nil {
		t.Fatalf("StartLayout: %v", err)
	}
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if l.steps != 1 {
		t.Errorf("steps = %d, want 1", l.steps)
	}

	g.PauseLayout()
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if l.steps != 1 {
		t.Errorf("tick after pause stepped the layout")
	}
}

func TestTickMissingLayout(t *testing.T) {
	g := graph.New()
	if err := g.AddNode(&graph.Node{ID: "a"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	// Running flag can only be set with a layout attached, so force the
	// condition by attaching, starting, then detaching.
	g.SetLayout(&countingLayout{nodes: 1})
	if err := g.StartLayout(); err != nil {
		t.Fatalf("StartLayout: %v", err)
	}
	g.SetLayout(nil)

	d := NewDriver(g)
	if err := d.Tick(context.Background()); !errors.Is(err, graph.ErrNoLayout) {
		t.Errorf("Tick without layout = %v, want ErrNoLayout", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	g, l := newTestGraph(t)
	if err := g.StartLayout(); err != nil {
		t.Fatalf("StartLayout: %v", err)
	}

	d := NewDriver(g, WithInterval(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Let a few ticks land, then stop.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if l.steps == 0 {
		t.Error("no steps were driven")
	}
}
