// Package sim provides the fixed-cadence stepping driver for a graph's
// attached layout.
//
// The simulation free-runs: while the graph's running flag is set, the driver
// fires one synchronous step per tick regardless of whether any consumer
// reads the output. There is no ambient process-wide timer - the host owns
// the driver loop and its lifetime through a context.
package sim

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lodestar-viz/lodestar/pkg/graph"
	"github.com/lodestar-viz/lodestar/pkg/observability"
)

// DefaultInterval is the standard tick period, roughly 60 Hz.
const DefaultInterval = time.Second / 60

// Driver steps a graph's layout at a fixed cadence.
//
// Ticks are serialized by construction: Run is a single goroutine and the
// ticker drops ticks that fire while a step executes, so Step is never
// re-entered and an overlapping tick coalesces into the next one. A step
// that has started always runs to completion; cancellation and pause are
// observed between ticks.
type Driver struct {
	g        *graph.Graph
	interval time.Duration
	logger   *log.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithInterval overrides the tick period.
func WithInterval(d time.Duration) Option {
	return func(dr *Driver) {
		if d > 0 {
			dr.interval = d
		}
	}
}

// WithLogger sets the logger for per-step diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(dr *Driver) { dr.logger = l }
}

// NewDriver creates a driver for the graph's attached layout.
func NewDriver(g *graph.Graph, opts ...Option) *Driver {
	d := &Driver{g: g, interval: DefaultInterval}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) log() *log.Logger {
	if d.logger != nil {
		return d.logger
	}
	return log.Default()
}

// Run drives the layout until the context is cancelled. Each tick performs
// one step if the graph is unpaused; pause takes effect no later than the
// next tick. Step errors other than a missing layout are logged and the loop
// continues - the simulation stays live.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

// Tick performs at most one step: none if the graph is paused. A missing
// layout stops the driver; any other step error is reported through hooks
// and logging but does not halt the cadence.
func (d *Driver) Tick(ctx context.Context) error {
	if !d.g.LayoutRunning() {
		return nil
	}

	start := time.Now()
	err := d.g.StepLayout()
	observability.Simulation().OnStepComplete(ctx, 0, d.g.NodeCount(), time.Since(start), err)

	if errors.Is(err, graph.ErrNoLayout) {
		return err
	}
	if err != nil {
		d.log().Error("layout step failed", "err", err)
	}
	return nil
}

// Steps runs exactly n steps back to back, ignoring the running flag and the
// cadence. Used by batch simulation (CLI, pipeline) where wall-clock pacing
// is pointless. Honors context cancellation between steps; a started step
// still runs to completion.
func (d *Driver) Steps(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := time.Now()
		err := d.g.StepLayout()
		observability.Simulation().OnStepComplete(ctx, i, d.g.NodeCount(), time.Since(start), err)
		if err != nil {
			return err
		}
	}
	return nil
}
