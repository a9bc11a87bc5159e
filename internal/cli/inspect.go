package cli

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilewarp/pkg/specio"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// inspectCommand creates the inspect command for summarizing spec files.
func (c *CLI) inspectCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "inspect <spec.json>",
		Short: "Summarize a transform spec file",
		Long: `Summarize a transform spec file: node and leaf counts, tree depth,
and the transform kinds and ids it contains.

With --interactive, open a tree browser instead; selecting a node
prints its parameters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse the spec tree interactively")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, interactive bool) error {
	spec, err := specio.Import(input)
	if err != nil {
		return err
	}

	if interactive {
		return browseSpec(spec)
	}

	sum := summarize(spec)

	printKeyValue("file", input)
	printStats(sum.nodes, sum.leaves, sum.maxDepth)
	printNewline()
	for _, kind := range slices.Sorted(maps.Keys(sum.kinds)) {
		printDetail("%-24s %d", kind, sum.kinds[kind])
	}
	if len(sum.ids) > 0 {
		printNewline()
		printKeyValue("ids", strings.Join(sum.ids, ", "))
	}
	return nil
}

// specSummary aggregates the shape of a spec tree.
type specSummary struct {
	nodes    int
	leaves   int
	maxDepth int
	kinds    map[string]int
	ids      []string
}

// summarize walks the spec and counts nodes, leaves, kinds, and ids.
func summarize(t transform.Transform) *specSummary {
	s := &specSummary{kinds: make(map[string]int)}
	s.walk(t, 1)
	return s
}

func (s *specSummary) walk(t transform.Transform, depth int) {
	s.nodes++
	if depth > s.maxDepth {
		s.maxDepth = depth
	}

	s.kinds[entryLabel(t)]++

	switch n := t.(type) {
	case *transform.List:
		if n.ID != "" {
			s.ids = append(s.ids, n.ID)
		}
		for _, m := range n.Transforms {
			s.walk(m, depth+1)
		}
	case *transform.Interpolated:
		s.walk(n.A, depth+1)
		s.walk(n.B, depth+1)
	case *transform.Reference:
	default:
		s.leaves++
		if l, ok := t.(transform.Leaf); ok && l.TransformID() != "" {
			s.ids = append(s.ids, l.TransformID())
		}
	}
}
