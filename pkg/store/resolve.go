package store

import (
	"context"
	"time"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/observability"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// Resolve replaces every reference node reachable from t with the stored
// transform its refId names, looking ids up in the given stack. Structure
// is preserved: lists and interpolated nodes are rebuilt around their
// resolved members, and a ref whose target is itself a list stays nested.
//
// A ref chain that revisits an id is a REFERENCE_CYCLE error; a refId the
// store does not know is UNRESOLVED_REFERENCE. The same id may appear in
// sibling branches, only cycles along one path are rejected.
func Resolve(ctx context.Context, s Store, stack string, t transform.Transform) (transform.Transform, error) {
	start := time.Now()
	r := resolver{store: s, stack: stack, active: make(map[string]bool)}
	out, err := r.resolve(ctx, t)
	observability.Store().OnResolve(ctx, stack, r.refs, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type resolver struct {
	store  Store
	stack  string
	active map[string]bool
	refs   int
}

func (r *resolver) resolve(ctx context.Context, t transform.Transform) (transform.Transform, error) {
	switch v := t.(type) {
	case *transform.Reference:
		return r.resolveRef(ctx, v)

	case *transform.List:
		members := make([]transform.Transform, len(v.Transforms))
		for i, m := range v.Transforms {
			resolved, err := r.resolve(ctx, m)
			if err != nil {
				return nil, err
			}
			members[i] = resolved
		}
		return &transform.List{Transforms: members, ID: v.ID}, nil

	case *transform.Interpolated:
		a, err := r.resolve(ctx, v.A)
		if err != nil {
			return nil, err
		}
		b, err := r.resolve(ctx, v.B)
		if err != nil {
			return nil, err
		}
		return &transform.Interpolated{A: a, B: b, Lambda: v.Lambda}, nil

	default:
		return t, nil
	}
}

func (r *resolver) resolveRef(ctx context.Context, ref *transform.Reference) (transform.Transform, error) {
	if r.active[ref.RefID] {
		return nil, errors.New(errors.ErrCodeRefCycle, "reference cycle through %q", ref.RefID)
	}
	r.active[ref.RefID] = true
	defer delete(r.active, ref.RefID)
	r.refs++

	target, err := r.store.GetTransform(ctx, r.stack, ref.RefID)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeNotFound {
			return nil, errors.Wrap(errors.ErrCodeUnresolvedRef, err,
				"resolving reference %q in stack %q", ref.RefID, r.stack)
		}
		return nil, err
	}
	// The target may contain further refs.
	return r.resolve(ctx, target)
}
