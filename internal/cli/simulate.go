package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lodestar-viz/lodestar/pkg/graph"
	"github.com/lodestar-viz/lodestar/pkg/layout"
	"github.com/lodestar-viz/lodestar/pkg/pipeline"
)

// simulateOpts holds the command-line flags for the simulate command.
type simulateOpts struct {
	output    string // output file path (single format) or base path (multiple)
	steps     int    // number of simulation steps
	dof       int    // spatial coordinates per node: 2 or 3
	algorithm string // layout algorithm name
	tuning    string // TOML tuning file layered over defaults
	start     string // subgraph start node (empty: simulate the whole graph)
	hops      int    // subgraph radius when extraction is requested
	extract   bool   // extract the default-seeded subgraph before simulating
	noCache   bool   // disable the snapshot/artifact cache
	refresh   bool   // bypass cached snapshots and recompute
	redis     string // redis address for a shared cache backend
}

// simulateCommand creates the simulate command: load a graph, step the
// embedding to a settled state, and write the requested artifacts.
func (c *CLI) simulateCommand() *cobra.Command {
	var formatsStr string
	opts := simulateOpts{
		steps: pipeline.DefaultSteps,
		dof:   pipeline.DefaultDOF,
	}

	cmd := &cobra.Command{
		Use:   "simulate [graph.json]",
		Short: "Compute a settled embedding for a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			return c.runSimulate(cmd.Context(), args[0], formats, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): json (default), dot, svg, png (comma-separated)")
	cmd.Flags().IntVar(&opts.steps, "steps", opts.steps, "number of simulation steps")
	cmd.Flags().IntVar(&opts.dof, "dof", opts.dof, "spatial degrees of freedom: 2 or 3")
	cmd.Flags().StringVar(&opts.algorithm, "algorithm", "", fmt.Sprintf("layout algorithm: %s", strings.Join(layout.Names(), ", ")))
	cmd.Flags().StringVar(&opts.tuning, "tuning", "", "TOML file with simulation constants")
	cmd.Flags().StringVar(&opts.start, "start", "", "extract the neighborhood of this node before simulating")
	cmd.Flags().IntVar(&opts.hops, "hops", 0, fmt.Sprintf("neighborhood radius (default %d)", graph.DefaultHops))
	cmd.Flags().BoolVar(&opts.extract, "extract", false, "extract the default-seeded neighborhood before simulating")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable result caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if a cached snapshot exists")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "redis address for a shared cache (host:port)")

	return cmd
}

func (c *CLI) runSimulate(ctx context.Context, input string, formats []string, opts *simulateOpts) error {
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return err
	}
	c.Logger.Info("loaded graph", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	g.SetLogger(c.Logger)

	pipeOpts := pipeline.Options{
		Algorithm:   opts.algorithm,
		DOF:         opts.dof,
		Steps:       opts.steps,
		Refresh:     opts.refresh,
		StartNodeID: opts.start,
		Hops:        opts.hops,
		Extract:     opts.extract,
		Formats:     formats,
		Logger:      c.Logger,
	}
	if opts.tuning != "" {
		t, err := layout.LoadTuning(opts.tuning)
		if err != nil {
			return err
		}
		pipeOpts.Tuning = t
	}

	runner, err := c.newRunner(ctx, opts.noCache, opts.redis)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, fmt.Sprintf("Simulating %d steps...", pipeOpts.Steps))
	spin.Start()

	result, err := runner.Execute(ctx, g, pipeOpts)
	if err != nil {
		spin.StopWithError(err.Error())
		return err
	}
	spin.Stop()
	prog.done(fmt.Sprintf("Simulated %d steps", result.Stats.Steps))

	printSuccess("Embedding settled")
	printStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.SnapshotHit)

	// The "_embedding" suffix keeps the default JSON artifact from
	// clobbering the input graph file.
	base := basePath(opts.output, input)
	if opts.output == "" {
		base += "_embedding"
	}
	for _, format := range formats {
		path := base + "." + format
		if opts.output != "" && len(formats) == 1 {
			path = opts.output
		}
		if err := os.WriteFile(path, result.Artifacts[format], 0644); err != nil {
			return err
		}
		printFile(path)
	}

	printNextStep("View live", fmt.Sprintf("lodestar watch %s", input))
	return nil
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input. If output carries a
// known format extension, that extension is stripped.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
