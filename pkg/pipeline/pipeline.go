// Package pipeline provides the core simulation pipeline for Lodestar.
//
// This package implements the complete load → simulate → render pipeline that
// can be used by CLI and API components. By centralizing this logic, we ensure
// consistent behavior across all entry points and avoid code duplication.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read a graph from its node-link JSON form
//  2. Simulate: Step the force-directed embedding a fixed number of times
//  3. Render: Generate output in various formats (JSON, DOT, SVG, PNG)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, logger)
//	opts := pipeline.Options{
//	    Steps:   2000,
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, g, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lodestar-viz/lodestar/pkg/errors"
	"github.com/lodestar-viz/lodestar/pkg/layout"
)

// Default values shared by the CLI and API so both entry points simulate the
// same way unless explicitly overridden.
const (
	// DefaultSteps is the number of simulation steps for a batch run. With
	// annealing enabled this is enough for mid-sized graphs to settle.
	DefaultSteps = 2000

	// DefaultDOF is the number of spatial coordinates per node.
	DefaultDOF = 3

	// DefaultAlgorithm is the layout engine used when none is named.
	DefaultAlgorithm = layout.ForceDirectedName
)

// Format constants for output formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
}

// Options contains all configuration for the simulation pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Simulation options
	Algorithm string `json:"algorithm,omitempty"`
	DOF       int    `json:"dof,omitempty"`
	Steps     int    `json:"steps,omitempty"`
	Refresh   bool   `json:"refresh,omitempty"`

	// Subgraph options; a zero Hops with an empty StartNodeID means the whole
	// graph is simulated without extraction.
	StartNodeID string `json:"start_node_id,omitempty"`
	Hops        int    `json:"hops,omitempty"`
	Extract     bool   `json:"extract,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`

	// Runtime options (not serialized)
	Tuning layout.Tuning `json:"-"`
	Logger *log.Logger   `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the settled embedding.
	Snapshot layout.Snapshot

	// GraphHash is the content hash of the simulated graph.
	GraphHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	Steps        int
	ExtractTime  time.Duration
	SimulateTime time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SnapshotHit bool // Whether the settled snapshot came from cache
	RenderHit   bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: json, dot, svg, png)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	if o.DOF == 0 {
		o.DOF = DefaultDOF
	}
	if o.Steps == 0 {
		o.Steps = DefaultSteps
	}
	if o.Steps < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "steps must be non-negative, got %d", o.Steps)
	}
	if o.Hops < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "hops must be non-negative, got %d", o.Hops)
	}
	if o.Tuning == (layout.Tuning{}) {
		o.Tuning = layout.DefaultTuning()
	}
	if err := o.Tuning.Validate(); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}
