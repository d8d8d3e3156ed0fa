package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lodestar-viz/lodestar/pkg/cache"
	"github.com/lodestar-viz/lodestar/pkg/errors"
	"github.com/lodestar-viz/lodestar/pkg/graph"
	"github.com/lodestar-viz/lodestar/pkg/layout"
	"github.com/lodestar-viz/lodestar/pkg/observability"
	"github.com/lodestar-viz/lodestar/pkg/render"
	"github.com/lodestar-viz/lodestar/pkg/sim"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options, as long as each call gets its own graph.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache.
// If c is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Execute runs the complete extract → simulate → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, g *graph.Graph, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid options")
	}

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Extract (optional)
	extractStart := time.Now()
	workGraph, err := r.PrepareGraph(g, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.ExtractTime = time.Since(extractStart)
	result.Stats.NodeCount = workGraph.NodeCount()
	result.Stats.EdgeCount = workGraph.EdgeCount()

	// Stage 2: Simulate
	simStart := time.Now()
	snap, snapHit, err := r.SimulateWithCacheInfo(ctx, workGraph, opts)
	if err != nil {
		return nil, err
	}
	result.Snapshot = snap
	result.Stats.SimulateTime = time.Since(simStart)
	result.Stats.Steps = snap.Step
	result.CacheInfo.SnapshotHit = snapHit

	if graphData, err := graph.MarshalGraph(workGraph); err == nil {
		result.GraphHash = cache.Hash(graphData)
	}

	r.Logger.Info("simulated embedding",
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"steps", result.Stats.Steps,
		"cached", snapHit,
		"duration", result.Stats.SimulateTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, snap, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// PrepareGraph extracts the bounded neighborhood subgraph when requested.
// Returns the original graph when no extraction applies.
func (r *Runner) PrepareGraph(g *graph.Graph, opts Options) (*graph.Graph, error) {
	if !opts.Extract && opts.StartNodeID == "" {
		return g, nil
	}

	subOpts := graph.DefaultSubgraphOptions()
	subOpts.StartNodeID = opts.StartNodeID
	if opts.Hops > 0 {
		subOpts.Hops = opts.Hops
	}
	sub, err := g.Subgraph(subOpts)
	if err != nil {
		return nil, err
	}
	r.Logger.Debug("extracted subgraph",
		"original_nodes", g.NodeCount(),
		"subgraph_nodes", sub.NodeCount())
	return sub, nil
}

// SimulateWithCacheInfo steps the embedding with caching and returns cache
// hit info. On a miss the layout is constructed, stepped opts.Steps times,
// captured as a snapshot, and stored.
func (r *Runner) SimulateWithCacheInfo(ctx context.Context, g *graph.Graph, opts Options) (layout.Snapshot, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return layout.Snapshot{}, false, err
	}

	graphData, err := graph.MarshalGraph(g)
	if err != nil {
		return layout.Snapshot{}, false, err
	}
	tuningHash := cache.Hash([]byte(fmt.Sprintf("%+v", opts.Tuning)))
	cacheKey := cache.SnapshotKey(graphData, opts.Algorithm, opts.DOF, opts.Steps, tuningHash)

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if cached, err := layout.UnmarshalSnapshot(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "snapshot")
				return cached, true, nil
			}
			// Corrupt entry, fall through to recompute
		}
	}
	observability.Cache().OnCacheMiss(ctx, "snapshot")

	snap, err := r.Simulate(ctx, g, opts)
	if err != nil {
		return layout.Snapshot{}, false, err
	}

	if data, err := layout.MarshalSnapshot(snap); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLSnapshot); err == nil {
			observability.Cache().OnCacheSet(ctx, "snapshot", len(data))
		}
	}

	return snap, false, nil
}

// Simulate constructs the layout, steps it opts.Steps times, and captures the
// result. No caching; batch pacing, not the wall-clock driver cadence.
func (r *Runner) Simulate(ctx context.Context, g *graph.Graph, opts Options) (layout.Snapshot, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return layout.Snapshot{}, err
	}

	l, err := layout.New(opts.Algorithm, g, layout.Options{
		DOF:    opts.DOF,
		Tuning: opts.Tuning,
		Logger: opts.Logger,
	})
	if err != nil {
		return layout.Snapshot{}, errors.Wrap(errors.ErrCodeInvalidLayout, err, "construct layout %q", opts.Algorithm)
	}
	g.SetLayout(l)
	if err := g.StartLayout(); err != nil {
		return layout.Snapshot{}, errors.Wrap(errors.ErrCodeConfigMismatch, err, "start layout")
	}
	defer g.PauseLayout()

	driver := sim.NewDriver(g, sim.WithLogger(opts.Logger))
	if err := driver.Steps(ctx, opts.Steps); err != nil {
		return layout.Snapshot{}, err
	}

	return layout.Capture(opts.Algorithm, l, g.NodeIDs()), nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit
// info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, snap layout.Snapshot, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	snapData, err := layout.MarshalSnapshot(snap)
	if err != nil {
		return nil, false, err
	}
	snapHash := cache.Hash(snapData)

	allCached := true
	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		cacheKey := cache.ArtifactKey(snapHash, format)
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}
	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "artifact")

	rendered, err := r.renderFormats(ctx, snap, snapData, opts.Formats)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := cache.ArtifactKey(snapHash, format)
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that discards the cache hit info.
func (r *Runner) Render(ctx context.Context, snap layout.Snapshot, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, snap, opts)
	return artifacts, err
}

func (r *Runner) renderFormats(ctx context.Context, snap layout.Snapshot, snapData []byte, formats []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(formats))
	var dot string
	for _, format := range formats {
		switch format {
		case FormatJSON:
			out[format] = snapData
		case FormatDOT:
			if dot == "" {
				dot = render.ToDOT(snap)
			}
			out[format] = []byte(dot)
		case FormatSVG:
			if dot == "" {
				dot = render.ToDOT(snap)
			}
			data, err := render.ToSVG(ctx, dot)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "render svg")
			}
			out[format] = data
		case FormatPNG:
			if dot == "" {
				dot = render.ToDOT(snap)
			}
			data, err := render.ToPNG(ctx, dot)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "render png")
			}
			out[format] = data
		default:
			return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q", format)
		}
	}
	return out, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
