package transform

import (
	"github.com/matzehuels/tilewarp/pkg/errors"
)

// List applies an ordered sequence of transforms, which may themselves be
// lists. The optional ID names the list in the interchange form.
type List struct {
	Transforms []Transform
	ID         string
}

// NewList returns a list over the given members.
func NewList(members ...Transform) *List {
	return &List{Transforms: members}
}

// Apply runs the points through each member in order.
func (l *List) Apply(pts []Point) ([]Point, error) {
	return ResolvePoints(l.Transforms, pts)
}

// Interpolated blends the outputs of two transforms. Lambda weights B's
// output: 0 yields A's output and 1 yields B's. Lambda is not range
// checked.
type Interpolated struct {
	A, B   Transform
	Lambda float64
}

// Apply evaluates both sides separately and interpolates their outputs per
// point.
func (ip *Interpolated) Apply(pts []Point) ([]Point, error) {
	av, err := ip.A.Apply(pts)
	if err != nil {
		return nil, err
	}
	bv, err := ip.B.Apply(pts)
	if err != nil {
		return nil, err
	}
	out := make([]Point, len(pts))
	for i := range out {
		out[i] = Point{
			X: (1-ip.Lambda)*av[i].X + ip.Lambda*bv[i].X,
			Y: (1-ip.Lambda)*av[i].Y + ip.Lambda*bv[i].Y,
		}
	}
	return out, nil
}

// Reference names a transform stored elsewhere by id. It carries only the
// lookup key and has no evaluation semantics of its own; a store must
// resolve it before the containing spec can be applied.
type Reference struct {
	RefID string
}

// Apply always fails: references must be resolved first.
func (r *Reference) Apply([]Point) ([]Point, error) {
	return nil, errors.New(errors.ErrCodeUnresolvedRef, "reference %q has not been resolved", r.RefID)
}
