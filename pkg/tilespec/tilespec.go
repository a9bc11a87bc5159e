// Package tilespec models the per-tile metadata that render service stacks
// carry alongside transform chains.
//
// A tile spec names a tile, places it in a layer, and holds the transform
// list that maps the tile's local pixel coordinates into the shared world
// space. The JSON shape matches the render service interchange format, so
// specs exported from a render stack decode directly:
//
//	{
//	  "tileId": "tile.0.0",
//	  "z": 1.0,
//	  "width": 2048,
//	  "height": 2048,
//	  "transforms": {"type": "list", "specList": [...]}
//	}
package tilespec

import (
	"encoding/json"
	"math"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// TileSpec describes one image tile and its placement in world space.
//
// Width and Height are the raw image dimensions in pixels. MinX through
// MaxY are the world-space bounding box, either carried over from an
// upstream service or derived locally with [TileSpec.DeriveBounds].
type TileSpec struct {
	// TileID uniquely identifies the tile within its stack.
	TileID string `json:"tileId"`

	// Z is the layer the tile belongs to. Render stacks allow fractional
	// layers, so this is a float.
	Z float64 `json:"z"`

	// Width and Height are the tile image dimensions in pixels.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// World-space bounding box of the transformed tile.
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`

	// Transforms maps local pixel coordinates to world coordinates. A nil
	// list leaves the tile in its local frame.
	Transforms *transform.List `json:"transforms,omitempty"`
}

// UnmarshalJSON decodes a tile spec, routing the transforms member through
// the transform codec. A bare leaf in the transforms slot is accepted and
// wrapped in a single-member list.
func (ts *TileSpec) UnmarshalJSON(data []byte) error {
	type raw struct {
		TileID     string          `json:"tileId"`
		Z          float64         `json:"z"`
		Width      float64         `json:"width"`
		Height     float64         `json:"height"`
		MinX       float64         `json:"minX"`
		MinY       float64         `json:"minY"`
		MaxX       float64         `json:"maxX"`
		MaxY       float64         `json:"maxY"`
		Transforms json.RawMessage `json:"transforms"`
	}

	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return errors.Wrap(errors.ErrCodeFormat, err, "decoding tile spec")
	}

	ts.TileID = r.TileID
	ts.Z = r.Z
	ts.Width = r.Width
	ts.Height = r.Height
	ts.MinX, ts.MinY = r.MinX, r.MinY
	ts.MaxX, ts.MaxY = r.MaxX, r.MaxY
	ts.Transforms = nil

	if len(r.Transforms) == 0 || string(r.Transforms) == "null" {
		return nil
	}
	tf, err := transform.Decode(r.Transforms)
	if err != nil {
		return errors.Wrap(errors.GetCode(err), err, "decoding transforms for tile %q", ts.TileID)
	}
	if l, ok := tf.(*transform.List); ok {
		ts.Transforms = l
	} else {
		ts.Transforms = transform.NewList(tf)
	}
	return nil
}

// Validate checks the spec for structural problems: a missing or unsafe
// tile id, or non-positive image dimensions.
func (ts *TileSpec) Validate() error {
	if err := errors.ValidateTileID(ts.TileID); err != nil {
		return err
	}
	if ts.Width <= 0 || ts.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidInput,
			"tile %q has non-positive dimensions %gx%g", ts.TileID, ts.Width, ts.Height)
	}
	return nil
}

// Corners returns the four corners of the tile in local pixel coordinates,
// ordered origin, top-right, bottom-left, bottom-right.
func (ts *TileSpec) Corners() []transform.Point {
	return []transform.Point{
		{X: 0, Y: 0},
		{X: ts.Width, Y: 0},
		{X: 0, Y: ts.Height},
		{X: ts.Width, Y: ts.Height},
	}
}

// LocalToWorld maps local pixel coordinates through the tile's transform
// list. With no transforms the points pass through unchanged.
func (ts *TileSpec) LocalToWorld(pts []transform.Point) ([]transform.Point, error) {
	if ts.Transforms == nil {
		return pts, nil
	}
	return transform.ResolvePoints(ts.Transforms.Transforms, pts)
}

// DeriveBounds recomputes the world-space bounding box from the tile's
// corners and stores it on the spec. The box is axis-aligned over the
// mapped corners, so for non-linear transforms it bounds the corner
// positions rather than the full warped outline.
func (ts *TileSpec) DeriveBounds() error {
	world, err := ts.LocalToWorld(ts.Corners())
	if err != nil {
		return err
	}
	ts.MinX, ts.MinY = world[0].X, world[0].Y
	ts.MaxX, ts.MaxY = world[0].X, world[0].Y
	for _, p := range world[1:] {
		ts.MinX = math.Min(ts.MinX, p.X)
		ts.MinY = math.Min(ts.MinY, p.Y)
		ts.MaxX = math.Max(ts.MaxX, p.X)
		ts.MaxY = math.Max(ts.MaxY, p.Y)
	}
	return nil
}
