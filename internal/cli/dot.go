package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/specio"
	"github.com/matzehuels/tilewarp/pkg/viz"
)

// dotCommand creates the dot command for spec tree visualization.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		output   string
		format   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "dot <spec.json>",
		Short: "Visualize a spec tree with Graphviz",
		Long: `Render the structure of a transform spec as a node-link diagram.

Formats: dot (Graphviz source, default), svg, png.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDot(cmd.Context(), args[0], format, detailed, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot, svg, png")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include ids and parameters in node labels")

	return cmd
}

func (c *CLI) runDot(ctx context.Context, input, format string, detailed bool, output string) error {
	spec, err := specio.Import(input)
	if err != nil {
		return err
	}
	dot := viz.ToDOT(spec, viz.Options{Detailed: detailed})

	var data []byte
	switch format {
	case "dot":
		data = []byte(dot)
	case "svg", "png":
		spin := newSpinner(ctx, fmt.Sprintf("Rendering %s...", format))
		spin.Start()
		if format == "svg" {
			data, err = viz.RenderSVG(dot)
		} else {
			data, err = viz.RenderPNG(dot)
		}
		if err != nil {
			spin.StopWithError("Rendering failed")
			return err
		}
		spin.Stop()
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (use dot, svg or png)", format)
	}

	out, err := openOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := out.Write(data); err != nil {
		return err
	}

	if output != "" {
		printSuccess("Rendered %s", format)
		printFile(output)
	}
	return nil
}
