package cli

import (
	"context"
	"math"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/specio"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// fitCommand creates the fit command for estimating models from point
// correspondences.
func (c *CLI) fitCommand() *cobra.Command {
	var (
		output string
		order  int
	)

	cmd := &cobra.Command{
		Use:   "fit <kind> <pairs-file>",
		Short: "Fit a transform to point correspondences",
		Long: `Fit a transform model to point correspondences.

Kinds: translation, rigid, similarity, affine, polynomial.

Pairs files are JSON ({"src": [[x,y],...], "dst": [[x,y],...]}) or CSV
rows "srcX,srcY,dstX,dstY". The fitted spec is written as interchange
JSON.

Examples:
  tilewarp fit affine matches.csv -o align.json
  tilewarp fit polynomial matches.json --order 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFit(cmd.Context(), args[0], args[1], order, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().IntVar(&order, "order", 2, "polynomial order (polynomial fits only)")

	return cmd
}

func (c *CLI) runFit(ctx context.Context, kind, pairsPath string, order int, output string) error {
	logger := loggerFromContext(ctx)

	src, dst, err := readPairs(pairsPath)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded %d point pairs from %s", len(src), pairsPath)

	prog := newProgress(logger)
	var leaf transform.Leaf
	switch kind {
	case "translation":
		leaf, err = transform.FitTranslation(src, dst)
	case "rigid":
		leaf, err = transform.FitRigid(src, dst)
	case "similarity":
		leaf, err = transform.FitSimilarity(src, dst)
	case "affine":
		leaf, err = transform.FitAffine(src, dst)
	case "polynomial":
		leaf, err = transform.FitPolynomial(src, dst, order)
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"unknown model kind %q (use translation, rigid, similarity, affine or polynomial)", kind)
	}
	if err != nil {
		return err
	}

	rms, err := fitResidual(leaf, src, dst)
	if err != nil {
		return err
	}
	prog.done("Fitted " + kind)

	out, err := openOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := specio.Write(leaf, out, specio.Options{}); err != nil {
		return err
	}

	if output != "" {
		printSuccess("Fitted %s from %d pairs", kind, len(src))
		printDetail("rms error: %.6g px", rms)
		printFile(output)
		printNextStep("Apply it", "tilewarp apply "+output+" --points <points-file>")
	} else {
		logger.Infof("Fitted %s from %d pairs (rms %.6g px)", kind, len(src), rms)
	}
	return nil
}

// fitResidual computes the root-mean-square distance between the fitted
// model's output and the target points.
func fitResidual(l transform.Leaf, src, dst []transform.Point) (float64, error) {
	got, err := l.Apply(src)
	if err != nil {
		return 0, err
	}
	if len(got) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range got {
		dx := got[i].X - dst[i].X
		dy := got[i].Y - dst[i].Y
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / float64(len(got))), nil
}
