package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/specio"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// applyParams holds the flags of the apply command.
type applyParams struct {
	spec    string
	points  string
	output  string
	inverse bool
	jsonOut bool
}

// applyCommand creates the apply command for pushing points through a
// spec.
func (c *CLI) applyCommand() *cobra.Command {
	p := applyParams{}

	cmd := &cobra.Command{
		Use:   "apply <spec.json>",
		Short: "Push points through a transform spec",
		Long: `Apply a transform spec (or a JSON array of specs, applied in order)
to 2-D points.

Points are read from --points or stdin, as CSV rows "x,y" or a JSON
array of [x, y] pairs. Transformed points are written as CSV unless
--json is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.spec = args[0]
			return c.runApply(cmd.Context(), p)
		},
	}

	cmd.Flags().StringVarP(&p.points, "points", "p", "", "points file (stdin if empty)")
	cmd.Flags().StringVarP(&p.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&p.inverse, "inverse", false, "apply the inverse (affine chains only)")
	cmd.Flags().BoolVar(&p.jsonOut, "json", false, "write points as JSON instead of CSV")

	return cmd
}

func (c *CLI) runApply(ctx context.Context, p applyParams) error {
	chain, err := specio.ImportChain(p.spec)
	if err != nil {
		return err
	}

	in, err := openInput(p.points)
	if err != nil {
		return err
	}
	defer in.Close()
	pts, err := readPoints(in)
	if err != nil {
		return err
	}

	var out []transform.Point
	if p.inverse {
		out, err = applyInverse(chain, pts)
	} else {
		out, err = transform.ResolvePoints(chain, pts)
	}
	if err != nil {
		return err
	}

	w, err := openOutput(p.output)
	if err != nil {
		return err
	}
	defer w.Close()
	return writePoints(w, out, p.jsonOut)
}

// applyInverse runs the chain backwards. Every member must be an
// invertible affine.
func applyInverse(chain []transform.Transform, pts []transform.Point) ([]transform.Point, error) {
	flat := transform.Flatten(chain)
	out := pts
	for i := len(flat) - 1; i >= 0; i-- {
		a, ok := flat[i].(*transform.Affine)
		if !ok {
			return nil, errors.New(errors.ErrCodeUnsupported, "inverse of %T is not supported", flat[i])
		}
		var err error
		out, err = a.ApplyInverse(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
