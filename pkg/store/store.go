// Package store persists transform and tile specs by stack.
//
// A Store holds specs in their JSON interchange form, keyed by stack name
// and spec id. Two implementations are provided: [MemStore] for tests and
// the local spec server, and [MongoStore] for a shared database. The
// package also resolves reference nodes against a store, replacing each
// ref by the spec it points at (see [Resolve]).
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/tilespec"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// Store reads and writes specs grouped into named stacks.
//
// Implementations validate stack names and spec ids on every call and
// return coded errors: NOT_FOUND for missing specs, INVALID_STACK and
// INVALID_ID for malformed keys.
type Store interface {
	// Stacks lists the stack names present in the store, sorted.
	Stacks(ctx context.Context) ([]string, error)

	// GetTransform loads the transform spec with the given id.
	GetTransform(ctx context.Context, stack, id string) (transform.Transform, error)

	// PutTransform stores a transform spec and returns its id. A spec
	// without an id is assigned a fresh one; the spec is updated in place.
	PutTransform(ctx context.Context, stack string, t transform.Transform) (string, error)

	// ListTransforms lists the transform ids in a stack, sorted.
	ListTransforms(ctx context.Context, stack string) ([]string, error)

	// GetTileSpec loads the tile spec with the given tile id.
	GetTileSpec(ctx context.Context, stack, tileID string) (*tilespec.TileSpec, error)

	// PutTileSpec stores a tile spec under its tile id.
	PutTileSpec(ctx context.Context, stack string, ts *tilespec.TileSpec) error

	// Close releases the store's resources.
	Close() error
}

// specID reads the id a spec carries, or "" when it has none.
func specID(t transform.Transform) string {
	switch v := t.(type) {
	case transform.Leaf:
		return v.TransformID()
	case *transform.List:
		return v.ID
	}
	return ""
}

// validateClassNames checks every leaf class name in a spec before it is
// stored. The known kinds always pass; unknown leaves must still carry a
// plausible class name (see [errors.ValidateClassName]).
func validateClassNames(t transform.Transform) error {
	switch v := t.(type) {
	case *transform.Unknown:
		return errors.ValidateClassName(v.Class)
	case *transform.List:
		for _, m := range v.Transforms {
			if err := validateClassNames(m); err != nil {
				return err
			}
		}
	case *transform.Interpolated:
		if err := validateClassNames(v.A); err != nil {
			return err
		}
		return validateClassNames(v.B)
	}
	return nil
}

// ensureSpecID returns the spec's id, assigning a fresh UUID in place when
// the spec carries none. Node kinds with no id slot in the interchange
// form (interpolated, ref) cannot be stored directly.
func ensureSpecID(t transform.Transform) (string, error) {
	id := specID(t)
	if id == "" {
		id = uuid.NewString()
		switch v := t.(type) {
		case *transform.Affine:
			v.ID = id
		case *transform.Polynomial:
			v.ID = id
		case *transform.Unknown:
			v.ID = id
		case *transform.List:
			v.ID = id
		default:
			return "", errors.New(errors.ErrCodeInvalidInput,
				"%T cannot carry a transform id; wrap it in a list", t)
		}
	}
	if err := errors.ValidateTransformID(id); err != nil {
		return "", err
	}
	return id, nil
}
