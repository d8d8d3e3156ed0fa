// Package layout implements spatial embedding engines for Lodestar graphs.
//
// A layout is constructed against a graph's counts at one instant, owns dense
// numeric buffers for the physics kernel, and advances one discrete step at a
// time under an external driver (pkg/sim). One concrete algorithm exists
// today, the force-directed particle simulation; the registry leaves room for
// more.
package layout

import (
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lodestar-viz/lodestar/pkg/graph"
)

// Layout is the full capability surface of a layout engine. It extends the
// minimal stepping interface the graph knows about with the read-only
// accessors the rendering side consumes once per frame.
//
// Accessors return the engine's live buffers, not copies; they reflect the
// most recently completed step and must be treated as read-only.
type Layout interface {
	graph.Layout

	DOF() int
	StepCount() int

	NodePositions() []float64 // node count × dof
	NodeColors() []float64    // node count × 4, RGBA in [0,1]
	NodeSizes() []float64     // node count
	EdgePositions() []float64 // edge count × 2 × dof
	EdgeNodeIndex() []int     // edge count × 2
}

// Options configures layout construction.
type Options struct {
	// DOF is the number of spatial coordinates per node, 2 or 3.
	// Defaults to 3.
	DOF int

	// Tuning holds the simulation constants. Zero value means DefaultTuning.
	Tuning Tuning

	// Logger receives per-step diagnostics. Defaults to the package logger.
	Logger *log.Logger
}

// Factory constructs a layout sized to the graph's current counts.
type Factory func(g *graph.Graph, opts Options) (Layout, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a layout algorithm available under a name.
// Registering a duplicate name panics; this is a programmer error.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("layout: Register called twice for %q", name))
	}
	registry[name] = f
}

// New constructs the named layout for the graph.
func New(name string, g *graph.Graph, opts Options) (Layout, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("layout: unknown algorithm %q", name)
	}
	return f(g, opts)
}

// Names returns the registered algorithm names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
