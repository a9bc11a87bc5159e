package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilewarp/pkg/cache"
	"github.com/matzehuels/tilewarp/pkg/observability"
	"github.com/matzehuels/tilewarp/pkg/specio"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// collapseParams holds the flags of the collapse command.
type collapseParams struct {
	spec    string
	output  string
	order   int
	width   float64
	height  float64
	steps   int
	noCache bool
}

// collapseCommand creates the collapse command for reducing chains to a
// single model.
func (c *CLI) collapseCommand() *cobra.Command {
	p := collapseParams{}

	cmd := &cobra.Command{
		Use:   "collapse <spec.json>",
		Short: "Collapse a transform chain into a single model",
		Long: `Collapse a spec (or JSON array of specs) into one transform.

Purely affine chains collapse exactly. Anything else is approximated by
a polynomial fitted on a regular grid of sample points spanning
--width x --height.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.spec = args[0]
			return c.runCollapse(cmd.Context(), p)
		},
	}

	cmd.Flags().StringVarP(&p.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().IntVar(&p.order, "order", 2, "polynomial order for inexact collapses")
	cmd.Flags().Float64Var(&p.width, "width", 2048, "sample grid width in pixels")
	cmd.Flags().Float64Var(&p.height, "height", 2048, "sample grid height in pixels")
	cmd.Flags().IntVar(&p.steps, "steps", 10, "sample grid points per axis")
	cmd.Flags().BoolVar(&p.noCache, "no-cache", false, "disable collapse result caching")

	return cmd
}

func (c *CLI) runCollapse(ctx context.Context, p collapseParams) error {
	logger := loggerFromContext(ctx)

	chain, err := specio.ImportChain(p.spec)
	if err != nil {
		return err
	}
	members := len(transform.Flatten(chain))

	leaf, err := c.collapseCached(ctx, chain, p)
	if err != nil {
		return err
	}

	out, err := openOutput(p.output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := specio.Write(leaf, out, specio.Options{}); err != nil {
		return err
	}

	if p.output != "" {
		printSuccess("Collapsed %d transforms to one %s", members, entryLabel(leaf))
		if _, ok := leaf.(*transform.Polynomial); ok {
			printWarning("Result is an approximation fitted on the sample grid")
		}
		printFile(p.output)
	} else {
		logger.Infof("Collapsed %d transforms to one %s", members, entryLabel(leaf))
	}
	return nil
}

// collapseCached collapses the chain, reusing an earlier result when the
// same chain was collapsed with the same sampling options. Keys hash the
// wire form of the chain, so trivia like input file indentation does not
// fragment the cache.
func (c *CLI) collapseCached(ctx context.Context, chain []transform.Transform, p collapseParams) (transform.Transform, error) {
	results, err := c.newCache(ctx, p.noCache)
	if err != nil {
		return nil, err
	}
	defer results.Close()

	encoded, _ := json.Marshal(chain)
	key := cache.NewDefaultKeyer().CollapseKey(cache.Hash(encoded), cache.CollapseKeyOpts{
		Order:  p.order,
		Cells:  p.steps,
		Width:  p.width,
		Height: p.height,
	})

	if data, hit, err := results.Get(ctx, key); err == nil && hit {
		if cached, err := transform.Decode(data); err == nil {
			observability.Cache().OnCacheHit(ctx, "collapse")
			loggerFromContext(ctx).Debug("reusing cached collapse", "key", key)
			return cached, nil
		}
		// Undecodable entry; fall through and recompute.
	}
	observability.Cache().OnCacheMiss(ctx, "collapse")

	leaf, err := transform.Collapse(chain, gridPoints(p.width, p.height, p.steps), p.order)
	if err != nil {
		return nil, err
	}
	if data, err := transform.Encode(leaf); err == nil {
		_ = results.Set(ctx, key, data, c.config().Cache.TTL.Duration)
		observability.Cache().OnCacheSet(ctx, "collapse", len(data))
	}
	return leaf, nil
}

// gridPoints samples an evenly spaced steps x steps grid over the
// [0,width] x [0,height] region.
func gridPoints(width, height float64, steps int) []transform.Point {
	if steps < 2 {
		steps = 2
	}
	pts := make([]transform.Point, 0, steps*steps)
	for i := 0; i < steps; i++ {
		for j := 0; j < steps; j++ {
			pts = append(pts, transform.Point{
				X: width * float64(i) / float64(steps-1),
				Y: height * float64(j) / float64(steps-1),
			})
		}
	}
	return pts
}
