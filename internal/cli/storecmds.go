package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/specio"
	"github.com/matzehuels/tilewarp/pkg/store"
	"github.com/matzehuels/tilewarp/pkg/tilespec"
)

// stacksCommand creates the stacks command for listing stacks on the
// backend.
func (c *CLI) stacksCommand() *cobra.Command {
	var (
		backend string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "stacks",
		Short: "List stacks on the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStacks(cmd.Context(), backend, noCache)
		},
	}
	addBackendFlags(cmd, &backend, &noCache)

	return cmd
}

func (c *CLI) runStacks(ctx context.Context, backend string, noCache bool) error {
	st, err := c.openStore(ctx, backend, noCache)
	if err != nil {
		return err
	}
	defer st.Close()

	spin := newSpinner(ctx, "Listing stacks...")
	spin.Start()
	stacks, err := st.Stacks(ctx)
	if err != nil {
		spin.StopWithError("Listing failed")
		return err
	}
	spin.Stop()

	if len(stacks) == 0 {
		printInfo("No stacks")
		return nil
	}
	for _, s := range stacks {
		fmt.Println(s)
	}
	return nil
}

// getParams holds the flags of the get command.
type getParams struct {
	backend string
	noCache bool
	stack   string
	id      string
	output  string
	resolve bool
	tile    bool
}

// getCommand creates the get command for fetching specs from the
// backend.
func (c *CLI) getCommand() *cobra.Command {
	p := getParams{}

	cmd := &cobra.Command{
		Use:   "get <stack> <id>",
		Short: "Fetch a transform or tile spec from the backend",
		Long: `Fetch a transform spec by id, or a tile spec with --tile.

With --resolve, references inside the transform are replaced by the
stack's stored transforms before writing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.stack, p.id = args[0], args[1]
			return c.runGet(cmd.Context(), p)
		},
	}
	addBackendFlags(cmd, &p.backend, &p.noCache)
	cmd.Flags().StringVarP(&p.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&p.resolve, "resolve", false, "resolve references before writing")
	cmd.Flags().BoolVar(&p.tile, "tile", false, "fetch a tile spec instead of a transform")

	return cmd
}

func (c *CLI) runGet(ctx context.Context, p getParams) error {
	st, err := c.openStore(ctx, p.backend, p.noCache)
	if err != nil {
		return err
	}
	defer st.Close()

	out, err := openOutput(p.output)
	if err != nil {
		return err
	}
	defer out.Close()

	if p.tile {
		ts, err := st.GetTileSpec(ctx, p.stack, p.id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ts)
	}

	t, err := st.GetTransform(ctx, p.stack, p.id)
	if err != nil {
		return err
	}
	if p.resolve {
		if t, err = store.Resolve(ctx, st, p.stack, t); err != nil {
			return err
		}
	}
	return specio.Write(t, out, specio.Options{})
}

// putParams holds the flags of the put command.
type putParams struct {
	backend string
	noCache bool
	stack   string
	input   string
	tile    bool
}

// putCommand creates the put command for storing specs on the backend.
func (c *CLI) putCommand() *cobra.Command {
	p := putParams{}

	cmd := &cobra.Command{
		Use:   "put <stack> <spec.json>",
		Short: "Store a transform or tile spec on the backend",
		Long: `Store a transform spec in a stack, or a tile spec with --tile.

Transforms without an id are assigned one by the backend; the assigned
id is printed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.stack, p.input = args[0], args[1]
			return c.runPut(cmd.Context(), p)
		},
	}
	addBackendFlags(cmd, &p.backend, &p.noCache)
	cmd.Flags().BoolVar(&p.tile, "tile", false, "store a tile spec instead of a transform")

	return cmd
}

func (c *CLI) runPut(ctx context.Context, p putParams) error {
	st, err := c.openStore(ctx, p.backend, p.noCache)
	if err != nil {
		return err
	}
	defer st.Close()

	if p.tile {
		data, err := os.ReadFile(p.input)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "reading tile spec")
		}
		var ts tilespec.TileSpec
		if err := json.Unmarshal(data, &ts); err != nil {
			return errors.Wrap(errors.ErrCodeFormat, err, "decoding tile spec %s", p.input)
		}

		spin := newSpinner(ctx, "Storing tile spec...")
		spin.Start()
		err = st.PutTileSpec(ctx, p.stack, &ts)
		if err != nil {
			spin.StopWithError("Store failed")
			return err
		}
		spin.Stop()
		printSuccess("Stored tile %s in stack %s", StyleHighlight.Render(ts.TileID), p.stack)
		return nil
	}

	t, err := specio.Import(p.input)
	if err != nil {
		return err
	}

	spin := newSpinner(ctx, "Storing transform...")
	spin.Start()
	id, err := st.PutTransform(ctx, p.stack, t)
	if err != nil {
		spin.StopWithError("Store failed")
		return err
	}
	spin.Stop()

	printSuccess("Stored transform %s in stack %s", StyleHighlight.Render(id), p.stack)
	printNextStep("Fetch it back", fmt.Sprintf("tilewarp get %s %s", p.stack, id))
	return nil
}
