// Package viz renders transform specs as node-link diagrams.
//
// # Overview
//
// This package produces directed graph visualizations of a spec's
// structure using Graphviz: leaves appear as boxes, lists and
// interpolations as ellipses with edges to their children, and
// unresolved references as dashed boxes. It draws the shape of the
// spec tree, not the geometry the spec encodes.
//
// # Usage
//
// Convert a spec to DOT format, then render to SVG or PNG:
//
//	dot := viz.ToDOT(spec, viz.Options{Detailed: true})
//	svg, err := viz.RenderSVG(dot)
//
// The DOT source from [ToDOT] is plain Graphviz input, so it can also
// be saved as-is and processed with external tooling.
//
// # Dependencies
//
// Rendering uses [github.com/goccy/go-graphviz], which embeds Graphviz
// and needs no external binaries.
package viz
