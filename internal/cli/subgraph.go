package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lodestar-viz/lodestar/pkg/graph"
)

// subgraphCommand creates the subgraph command: extract the bounded
// neighborhood around a node and write it as a standalone graph file.
func (c *CLI) subgraphCommand() *cobra.Command {
	var (
		output string
		start  string
		hops   int
	)

	cmd := &cobra.Command{
		Use:   "subgraph [graph.json]",
		Short: "Extract a bounded neighborhood subgraph",
		Long: `Extract the nodes within a hop radius of a start node, plus every edge
whose endpoints both fall inside the neighborhood. Without --start the
highest-degree "` + graph.DefaultSeedCategory + `" node seeds the traversal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := graph.ReadGraphFile(args[0])
			if err != nil {
				return err
			}
			g.SetLogger(c.Logger)

			opts := graph.DefaultSubgraphOptions()
			opts.StartNodeID = start
			opts.Hops = hops

			sub, err := g.Subgraph(opts)
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + "_subgraph.json"
			}
			if err := graph.WriteGraphFile(sub, path); err != nil {
				return err
			}

			printSuccess("Extracted %d of %d nodes", sub.NodeCount(), g.NodeCount())
			printStats(sub.NodeCount(), sub.EdgeCount(), false)
			printFile(path)
			printNextStep("Simulate it", fmt.Sprintf("lodestar simulate %s", path))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: input with _subgraph suffix)")
	cmd.Flags().StringVar(&start, "start", "", "start node ID (default: highest-degree seed node)")
	cmd.Flags().IntVar(&hops, "hops", graph.DefaultHops, "neighborhood radius in hops")

	return cmd
}
