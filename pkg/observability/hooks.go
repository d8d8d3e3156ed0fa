// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about simulation stepping, graph mutation, and cache
// operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSimulationHooks(&mySimHooks{})
//	    observability.SetGraphHooks(&myGraphHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Simulation().OnStepComplete(ctx, step, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Simulation Hooks
// =============================================================================

// SimulationHooks receives events from the layout simulation.
type SimulationHooks interface {
	// OnStepComplete records one completed simulation step.
	OnStepComplete(ctx context.Context, step int, nodeCount int, duration time.Duration, err error)

	// OnNumericGuard records a pairwise interaction skipped or clamped
	// because of a zero distance or non-finite intermediate value.
	OnNumericGuard(ctx context.Context, step, i, j int)
}

// =============================================================================
// Graph Hooks
// =============================================================================

// GraphHooks receives events from graph mutation and traversal.
type GraphHooks interface {
	// OnDuplicateID records a rejected duplicate node or edge insertion.
	// kind is "node" or "edge".
	OnDuplicateID(ctx context.Context, kind, id string)

	// OnSubgraphExtracted records a completed BFS subgraph extraction.
	OnSubgraphExtracted(ctx context.Context, seed string, hops, nodeCount, edgeCount int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSimulationHooks is a no-op implementation of SimulationHooks.
type NoopSimulationHooks struct{}

func (NoopSimulationHooks) OnStepComplete(context.Context, int, int, time.Duration, error) {}
func (NoopSimulationHooks) OnNumericGuard(context.Context, int, int, int)                  {}

// NoopGraphHooks is a no-op implementation of GraphHooks.
type NoopGraphHooks struct{}

func (NoopGraphHooks) OnDuplicateID(context.Context, string, string)              {}
func (NoopGraphHooks) OnSubgraphExtracted(context.Context, string, int, int, int) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	simulationHooks SimulationHooks = NoopSimulationHooks{}
	graphHooks      GraphHooks      = NoopGraphHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	hooksMu         sync.RWMutex
)

// SetSimulationHooks registers custom simulation hooks.
// This should be called once at application startup before any stepping.
func SetSimulationHooks(h SimulationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		simulationHooks = h
	}
}

// SetGraphHooks registers custom graph hooks.
// This should be called once at application startup before any graph mutation.
func SetGraphHooks(h GraphHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		graphHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Simulation returns the registered simulation hooks.
func Simulation() SimulationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return simulationHooks
}

// Graph returns the registered graph hooks.
func Graph() GraphHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return graphHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	simulationHooks = NoopSimulationHooks{}
	graphHooks = NoopGraphHooks{}
	cacheHooks = NoopCacheHooks{}
}
