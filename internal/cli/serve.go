package cli

import (
	"github.com/spf13/cobra"

	"github.com/lodestar-viz/lodestar/internal/server"
	"github.com/lodestar-viz/lodestar/pkg/graph"
	"github.com/lodestar-viz/lodestar/pkg/layout"
	"github.com/lodestar-viz/lodestar/pkg/pipeline"
)

// serveCommand creates the serve command: load a graph, attach a layout, and
// expose the running simulation over HTTP. The embedding keeps evolving at
// the driver cadence for as long as the process lives; clients poll the
// positions endpoint and toggle the running state.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		dof       int
		algorithm string
		tuning    string
		paused    bool
	)

	cmd := &cobra.Command{
		Use:   "serve [graph.json]",
		Short: "Serve a live simulation over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.ReadGraphFile(args[0])
			if err != nil {
				return err
			}
			g.SetLogger(c.Logger)
			c.Logger.Info("loaded graph", "nodes", g.NodeCount(), "edges", g.EdgeCount())

			layoutOpts := layout.Options{DOF: dof, Logger: c.Logger}
			if tuning != "" {
				if layoutOpts.Tuning, err = layout.LoadTuning(tuning); err != nil {
					return err
				}
			}
			if algorithm == "" {
				algorithm = pipeline.DefaultAlgorithm
			}
			l, err := layout.New(algorithm, g, layoutOpts)
			if err != nil {
				return err
			}
			g.SetLayout(l)
			if !paused {
				if err := g.StartLayout(); err != nil {
					return err
				}
			}

			printInfo("Serving %s on %s", args[0], addr)
			printNextStep("Positions", "curl http://"+addr+"/api/positions")

			srv := server.New(g, l, algorithm, c.Logger)
			return srv.Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().IntVar(&dof, "dof", pipeline.DefaultDOF, "spatial degrees of freedom: 2 or 3")
	cmd.Flags().StringVar(&algorithm, "algorithm", "", "layout algorithm")
	cmd.Flags().StringVar(&tuning, "tuning", "", "TOML file with simulation constants")
	cmd.Flags().BoolVar(&paused, "paused", false, "start with the simulation paused")

	return cmd
}
