package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/lodestar-viz/lodestar/pkg/layout"
	"github.com/lodestar-viz/lodestar/pkg/pipeline"
	"github.com/lodestar-viz/lodestar/pkg/render"
)

// renderCommand creates the render command: turn a previously captured
// snapshot into DOT, SVG, or PNG without re-running the simulation.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
	)

	cmd := &cobra.Command{
		Use:   "render [snapshot.json]",
		Short: "Render a settled embedding snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := parseFormats(formatsStr)
			if len(formats) == 1 && formats[0] == pipeline.FormatJSON {
				formats = []string{pipeline.FormatSVG}
			}
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], output, formats)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, png (comma-separated)")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input, output string, formats []string) error {
	snap, err := layout.ReadSnapshotFile(input)
	if err != nil {
		return err
	}
	c.Logger.Info("loaded snapshot", "algorithm", snap.Algorithm, "step", snap.Step, "nodes", len(snap.NodeIDs))

	dot := render.ToDOT(snap)

	base := basePath(output, input)
	for _, format := range formats {
		var data []byte
		switch format {
		case pipeline.FormatDOT:
			data = []byte(dot)
		case pipeline.FormatSVG:
			if data, err = render.ToSVG(ctx, dot); err != nil {
				return err
			}
		case pipeline.FormatPNG:
			if data, err = render.ToPNG(ctx, dot); err != nil {
				return err
			}
		case pipeline.FormatJSON:
			continue // the input already is the JSON form
		}

		path := base + "." + format
		if output != "" && len(formats) == 1 {
			path = output
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		printFile(path)
	}

	printSuccess("Rendered %d format(s)", len(formats))
	return nil
}
