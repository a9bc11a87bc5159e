package transform

import (
	"github.com/matzehuels/tilewarp/pkg/errors"
)

// Transform maps 2-D points to 2-D points. Implementations are either leaf
// models carrying their own parameters or structural nodes combining other
// transforms.
type Transform interface {
	// Apply maps each input point, returning one output point per input.
	Apply(pts []Point) ([]Point, error)
}

// Leaf is a parametric transform with a canonical text encoding. The
// dataString is the authoritative exchange form of the parameters: two
// leaves with the same class name and dataString denote the same transform.
type Leaf interface {
	Transform

	// ClassName returns the wire class name identifying the concrete kind.
	ClassName() string

	// DataString returns the canonical text encoding of the parameters.
	DataString() string

	// TransformID returns the optional interchange identifier, empty if unset.
	TransformID() string
}

// LeafKey returns the identity key of a leaf. Keys are stable across
// instances and safe to use as map keys.
func LeafKey(l Leaf) string {
	return l.ClassName() + "\n" + l.DataString()
}

// LeafEqual reports whether two leaves encode the same transform.
func LeafEqual(a, b Leaf) bool {
	return LeafKey(a) == LeafKey(b)
}

// Unknown is a leaf of a class this package has no model for. It preserves
// the class name and raw dataString so specs produced elsewhere survive a
// decode and encode round trip untouched.
type Unknown struct {
	Class string
	Data  string
	ID    string
}

// Apply always fails: the parameters of an unknown class cannot be
// interpreted locally.
func (u *Unknown) Apply([]Point) ([]Point, error) {
	return nil, errors.New(errors.ErrCodeUnsupported, "transform class %s cannot be evaluated", u.Class)
}

func (u *Unknown) ClassName() string { return u.Class }

func (u *Unknown) DataString() string { return u.Data }

func (u *Unknown) TransformID() string { return u.ID }
