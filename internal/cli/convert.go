package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/specio"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// convertCommand creates the convert command for affine-to-polynomial
// conversion.
func (c *CLI) convertCommand() *cobra.Command {
	var (
		output string
		order  int
	)

	cmd := &cobra.Command{
		Use:   "convert <spec.json>",
		Short: "Convert an affine spec to its polynomial form",
		Long: `Convert an affine leaf to the equivalent order-1 polynomial, or pad
an existing polynomial with zero coefficients up to --order. Point
mappings are unchanged either way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), args[0], order, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().IntVar(&order, "order", 1, "minimum polynomial order of the output")

	return cmd
}

func (c *CLI) runConvert(ctx context.Context, spec string, order int, output string) error {
	t, err := specio.Import(spec)
	if err != nil {
		return err
	}

	var poly *transform.Polynomial
	switch n := t.(type) {
	case *transform.Affine:
		poly = transform.PolynomialFromAffine(n)
	case *transform.Polynomial:
		poly = n
	default:
		return errors.New(errors.ErrCodeConversion, "cannot convert %T to a polynomial", t)
	}

	if order > poly.Order() {
		if poly, err = poly.AsOrder(order); err != nil {
			return err
		}
	}

	out, err := openOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := specio.Write(poly, out, specio.Options{}); err != nil {
		return err
	}

	if output != "" {
		printSuccess("Converted to order-%d polynomial", poly.Order())
		printFile(output)
	}
	return nil
}
