package layout

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/lodestar-viz/lodestar/pkg/graph"
	"github.com/lodestar-viz/lodestar/pkg/observability"
)

// ForceDirectedName is the registry name of the force-directed algorithm.
const ForceDirectedName = "force-directed"

func init() {
	Register(ForceDirectedName, func(g *graph.Graph, opts Options) (Layout, error) {
		return NewForceDirected(g, opts)
	})
}

// minPairDistance is the clamp below which two nodes are treated as
// coincident: their pairwise interaction is skipped for the step rather than
// dividing by zero and poisoning the shared centroid with NaN.
const minPairDistance = 1e-9

// Mass multipliers per category. Heavier nodes pull their neighbors harder
// through the spring term.
const (
	deviceMassFactor  = 2.0
	defaultMassFactor = 0.1
)

// palette maps node categories to RGBA channels normalized to [0,1].
// Unrecognized categories render white.
var palette = map[string][4]float64{
	graph.CategoryDriver: {0.0, 0.67, 0.76, 1.0},
	graph.CategoryRider:  {1.0, 0.44, 0.26, 1.0},
	graph.CategoryDevice: {1.0, 0.76, 0.03, 1.0},
}

var paletteDefault = [4]float64{1.0, 1.0, 1.0, 1.0}

// ForceDirected computes a continuously-evolving embedding of a fixed-size
// graph through an N-body style particle simulation: inverse-square
// repulsion, soft collision penalties, edge springs, and a directional
// gravity term, integrated with implicit drag and re-centered on the origin
// after every step.
//
// All buffers are allocated at construction for the node and edge counts
// observed then; later graph mutation is not reflected. Step is not safe for
// concurrent use - the driver serializes ticks.
type ForceDirected struct {
	dof    int
	n, m   int
	tuning Tuning
	logger *log.Logger

	positions     []float64 // n × dof
	velocities    []float64 // n × dof
	accelerations []float64 // n × dof
	masses        []float64 // n
	sizes         []float64 // n
	colors        []float64 // n × 4

	// Pairwise caches, rebuilt every step.
	distances  []float64 // n × n
	directions []float64 // n × n × dof, unit vectors i→j

	edgeIdx       []int     // m × 2 node indices, frozen at construction
	edgePositions []float64 // m × 2 × dof, refreshed after each step

	timestep float64
	steps    int
}

// NewForceDirected builds a force-directed layout sized to the graph's
// current node and edge counts.
//
// Positions are independent Gaussian samples per degree of freedom (mean 0,
// std 2), with the third axis additionally doubled to bias toward flatter
// layouts. Velocities take one standard Gaussian sample per slot. Mass
// derives from degree and category; colors come from the category palette.
func NewForceDirected(g *graph.Graph, opts Options) (*ForceDirected, error) {
	dof := opts.DOF
	if dof == 0 {
		dof = 3
	}
	if dof != 2 && dof != 3 {
		return nil, fmt.Errorf("layout: dof must be 2 or 3, got %d", dof)
	}

	tuning := opts.Tuning
	if tuning.isZero() {
		tuning = DefaultTuning()
	}
	if err := tuning.Validate(); err != nil {
		return nil, err
	}

	nodes := g.Nodes()
	edgeIdx := slices.Clone(g.EdgeNodeIndex())
	n := len(nodes)
	m := len(edgeIdx) / 2

	l := &ForceDirected{
		dof:    dof,
		n:      n,
		m:      m,
		tuning: tuning,
		logger: opts.Logger,

		positions:     make([]float64, n*dof),
		velocities:    make([]float64, n*dof),
		accelerations: make([]float64, n*dof),
		masses:        make([]float64, n),
		sizes:         make([]float64, n),
		colors:        make([]float64, n*4),

		distances:  make([]float64, n*n),
		directions: make([]float64, n*n*dof),

		edgeIdx:       edgeIdx,
		edgePositions: make([]float64, m*2*dof),

		timestep: tuning.Timestep,
	}

	for i, node := range nodes {
		for k := 0; k < dof; k++ {
			sample := Gaussian(0, 2)
			if k == 2 {
				sample *= 2
			}
			l.positions[i*dof+k] = sample
			l.velocities[i*dof+k] = Gaussian(0, 1)
		}

		degree := float64(g.Degree(node.ID))
		if node.Category == graph.CategoryDevice {
			l.masses[i] = degree * deviceMassFactor
		} else {
			l.masses[i] = degree * defaultMassFactor
		}

		l.sizes[i] = tuning.NodeSize

		rgba, ok := palette[node.Category]
		if !ok {
			rgba = paletteDefault
		}
		copy(l.colors[i*4:i*4+4], rgba[:])
	}

	l.refreshEdgePositions()
	return l, nil
}

func (l *ForceDirected) log() *log.Logger {
	if l.logger != nil {
		return l.logger
	}
	return log.Default()
}

// Step advances the simulation by one discrete update: anneal the timestep,
// rebuild the pairwise caches, accumulate node-node and edge-spring forces,
// integrate, and re-center on the origin. Numeric degeneracies are skipped
// per pair with a diagnostic; a step never aborts.
func (l *ForceDirected) Step() error {
	l.steps++
	if l.steps > l.tuning.AnnealAfter {
		l.timestep = min(l.timestep*l.tuning.AnnealRate, l.tuning.MaxTimestep)
	}

	l.computePairwise()
	l.applyNodeForces()
	l.applyEdgeForces()
	l.integrate()
	l.refreshEdgePositions()
	return nil
}

// computePairwise rebuilds the Euclidean distance and unit direction caches
// for every unordered pair, mirroring into the reverse slot. Coincident
// nodes get a zero distance marker and zero direction so later passes treat
// the pair as non-interacting.
func (l *ForceDirected) computePairwise() {
	n, dof := l.n, l.dof
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var sum float64
			for k := 0; k < dof; k++ {
				d := l.positions[j*dof+k] - l.positions[i*dof+k]
				sum += d * d
			}
			dist := math.Sqrt(sum)

			ij := i*n + j
			ji := j*n + i
			if dist < minPairDistance {
				l.distances[ij], l.distances[ji] = 0, 0
				for k := 0; k < dof; k++ {
					l.directions[ij*dof+k] = 0
					l.directions[ji*dof+k] = 0
				}
				l.log().Debug("coincident nodes, skipping pair", "step", l.steps, "i", i, "j", j)
				observability.Simulation().OnNumericGuard(context.Background(), l.steps, i, j)
				continue
			}

			l.distances[ij], l.distances[ji] = dist, dist
			for k := 0; k < dof; k++ {
				u := (l.positions[j*dof+k] - l.positions[i*dof+k]) / dist
				l.directions[ij*dof+k] = u
				l.directions[ji*dof+k] = -u
			}
		}
	}
}

// applyNodeForces accumulates repulsion, overlap penalties, and the
// directional gravity term into the acceleration buffer.
func (l *ForceDirected) applyNodeForces() {
	n, dof := l.n, l.dof
	clear(l.accelerations)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			ij := i*n + j
			dist := l.distances[ij]
			if dist == 0 {
				// Guarded coincident pair.
				continue
			}

			gap := dist - (l.sizes[i] + l.sizes[j])
			var f float64
			if gap > 0 {
				f = l.tuning.Repulsion * l.masses[j] / (dist * dist)
			} else {
				f = l.tuning.Boundary * -gap
			}
			// Push i away from j.
			for k := 0; k < dof; k++ {
				l.accelerations[i*dof+k] -= l.directions[ij*dof+k] * f
			}

			// Constant-magnitude pull toward every other node, along the
			// third axis only. Keeps the layout from drifting apart in depth.
			if dof == 3 {
				dz := l.positions[j*dof+2] - l.positions[i*dof+2]
				if dz > 0 {
					l.accelerations[i*dof+2] += l.tuning.Gravity
				} else if dz < 0 {
					l.accelerations[i*dof+2] -= l.tuning.Gravity
				}
			}
		}
	}
}

// applyEdgeForces accumulates the spring term: each endpoint is pulled along
// the mutual direction with magnitude proportional to the stretch and to the
// opposite endpoint's mass, so heavier neighbors pull harder.
func (l *ForceDirected) applyEdgeForces() {
	n, dof := l.n, l.dof
	for e := 0; e < l.m; e++ {
		a := l.edgeIdx[2*e]
		b := l.edgeIdx[2*e+1]
		if a == b {
			continue
		}
		dist := l.distances[a*n+b]
		if dist == 0 {
			continue
		}

		stretch := dist - l.tuning.RestLength
		fa := stretch * l.tuning.Spring * l.masses[b]
		fb := stretch * l.tuning.Spring * l.masses[a]
		for k := 0; k < dof; k++ {
			l.accelerations[a*dof+k] += l.directions[(a*n+b)*dof+k] * fa
			l.accelerations[b*dof+k] += l.directions[(b*n+a)*dof+k] * fb
		}
	}
}

// integrate advances velocity and position, applies drag, sanitizes any
// non-finite slot, and subtracts the per-axis centroid so the system stays
// centered on the origin.
func (l *ForceDirected) integrate() {
	dof := l.dof
	for s := range l.velocities {
		v := (l.velocities[s] + l.accelerations[s]*l.timestep) * l.tuning.Damping
		if !isFinite(v) {
			l.log().Warn("non-finite velocity, resetting slot", "step", l.steps, "slot", s)
			observability.Simulation().OnNumericGuard(context.Background(), l.steps, s/dof, s/dof)
			v = 0
		}
		l.velocities[s] = v

		// Velocity already carries the timestep scaling; position gets a
		// plain add.
		p := l.positions[s] + v
		if !isFinite(p) {
			l.log().Warn("non-finite position, resetting slot", "step", l.steps, "slot", s)
			p = 0
		}
		l.positions[s] = p
	}

	if l.n == 0 {
		return
	}
	for k := 0; k < dof; k++ {
		var mean float64
		for i := 0; i < l.n; i++ {
			mean += l.positions[i*dof+k]
		}
		mean /= float64(l.n)
		for i := 0; i < l.n; i++ {
			l.positions[i*dof+k] -= mean
		}
	}
}

// refreshEdgePositions maps the frozen endpoint indices through the position
// buffer so EdgePositions reflects the most recently completed step.
func (l *ForceDirected) refreshEdgePositions() {
	dof := l.dof
	for e := 0; e < l.m; e++ {
		a := l.edgeIdx[2*e]
		b := l.edgeIdx[2*e+1]
		copy(l.edgePositions[e*2*dof:], l.positions[a*dof:a*dof+dof])
		copy(l.edgePositions[e*2*dof+dof:], l.positions[b*dof:b*dof+dof])
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NodeCount returns the node count the buffers were sized for.
func (l *ForceDirected) NodeCount() int { return l.n }

// EdgeCount returns the edge count the buffers were sized for.
func (l *ForceDirected) EdgeCount() int { return l.m }

// DOF returns the spatial coordinates per node.
func (l *ForceDirected) DOF() int { return l.dof }

// StepCount returns the number of completed steps.
func (l *ForceDirected) StepCount() int { return l.steps }

// NodePositions returns the live position buffer, node count × dof.
func (l *ForceDirected) NodePositions() []float64 { return l.positions }

// NodeColors returns the live color buffer, node count × 4 RGBA in [0,1].
func (l *ForceDirected) NodeColors() []float64 { return l.colors }

// NodeSizes returns the live size buffer.
func (l *ForceDirected) NodeSizes() []float64 { return l.sizes }

// EdgePositions returns the live per-edge endpoint position buffer,
// edge count × 2 × dof.
func (l *ForceDirected) EdgePositions() []float64 { return l.edgePositions }

// EdgeNodeIndex returns the endpoint-index buffer frozen at construction.
func (l *ForceDirected) EdgeNodeIndex() []int { return l.edgeIdx }
