package viz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/tilewarp/pkg/transform"
)

// Options configures DOT generation.
type Options struct {
	// Detailed includes transform ids and parameters in node labels.
	// When false, only the node kind is shown.
	Detailed bool
}

// ToDOT converts a transform spec to Graphviz DOT format. The resulting
// DOT string can be rendered with [RenderSVG] or [RenderPNG].
//
// List and interpolation nodes carry edge labels giving the member index
// (or the a/b role with interpolations) so the evaluation order survives
// the layout.
func ToDOT(t transform.Transform, opts Options) string {
	b := &builder{opts: opts}
	b.walk(t)

	var buf bytes.Buffer
	buf.WriteString("digraph spec {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("\n")
	for _, n := range b.nodes {
		buf.WriteString("  " + n + "\n")
	}
	buf.WriteString("\n")
	for _, e := range b.edges {
		buf.WriteString("  " + e + "\n")
	}
	buf.WriteString("}\n")
	return buf.String()
}

// builder accumulates node and edge statements during the spec walk so
// the emitted DOT groups all nodes before all edges.
type builder struct {
	opts  Options
	nodes []string
	edges []string
	next  int
}

// walk emits the node statement for t, recurses into its children, and
// returns the synthetic DOT id assigned to t.
func (b *builder) walk(t transform.Transform) string {
	id := fmt.Sprintf("n%d", b.next)
	b.next++

	label := fmtLabel(t, b.opts.Detailed)
	attrs := fmtAttrs(t, label)
	b.nodes = append(b.nodes, fmt.Sprintf("%q [%s];", id, strings.Join(attrs, ", ")))

	switch n := t.(type) {
	case *transform.List:
		for i, m := range n.Transforms {
			child := b.walk(m)
			b.edges = append(b.edges, fmt.Sprintf("%q -> %q [label=\"%d\"];", id, child, i))
		}
	case *transform.Interpolated:
		left := b.walk(n.A)
		b.edges = append(b.edges, fmt.Sprintf("%q -> %q [label=\"a\"];", id, left))
		right := b.walk(n.B)
		b.edges = append(b.edges, fmt.Sprintf("%q -> %q [label=\"b\"];", id, right))
	}
	return id
}

func fmtLabel(t transform.Transform, detailed bool) string {
	switch n := t.(type) {
	case *transform.Affine:
		if !detailed {
			return n.Kind.String()
		}
		parts := []string{n.Kind.String()}
		if n.ID != "" {
			parts = append(parts, "id: "+n.ID)
		}
		parts = append(parts,
			fmt.Sprintf("m: [%.4g %.4g; %.4g %.4g]", n.M00, n.M01, n.M10, n.M11),
			fmt.Sprintf("b: (%.4g, %.4g)", n.B0, n.B1))
		return strings.Join(parts, "\n")
	case *transform.Polynomial:
		if !detailed {
			return "polynomial"
		}
		parts := []string{fmt.Sprintf("polynomial (order %d)", n.Order())}
		if n.ID != "" {
			parts = append(parts, "id: "+n.ID)
		}
		return strings.Join(parts, "\n")
	case *transform.List:
		if detailed && n.ID != "" {
			return "list\nid: " + n.ID
		}
		return "list"
	case *transform.Interpolated:
		return fmt.Sprintf("interpolated\nlambda: %g", n.Lambda)
	case *transform.Reference:
		return "ref: " + n.RefID
	case *transform.Unknown:
		if detailed && n.ID != "" {
			return n.Class + "\nid: " + n.ID
		}
		return n.Class
	default:
		return fmt.Sprintf("%T", t)
	}
}

func fmtAttrs(t transform.Transform, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch t.(type) {
	case *transform.List, *transform.Interpolated:
		attrs = append(attrs, "shape=ellipse")
	case *transform.Reference, *transform.Unknown:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return render(dot, graphviz.SVG)
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(dot string) ([]byte, error) {
	return render(dot, graphviz.PNG)
}

func render(dot string, format graphviz.Format) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
