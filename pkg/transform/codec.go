package transform

import (
	"encoding/json"

	"github.com/matzehuels/tilewarp/pkg/errors"
)

// Node type discriminators of the interchange format. A node without a
// type field is a leaf.
const (
	TypeLeaf         = "leaf"
	TypeList         = "list"
	TypeInterpolated = "interpolated"
	TypeRef          = "ref"
)

// leafDecoders maps wire class names to dataString decoders. Class names
// absent from this table decode to [Unknown]; they are not errors.
var leafDecoders = map[string]func(ds, id string) (Leaf, error){
	ClassAffine:      func(ds, id string) (Leaf, error) { return decodeAffine(KindAffine, ds, id) },
	ClassTranslation: func(ds, id string) (Leaf, error) { return decodeAffine(KindTranslation, ds, id) },
	ClassRigid:       func(ds, id string) (Leaf, error) { return decodeAffine(KindRigid, ds, id) },
	ClassSimilarity:  func(ds, id string) (Leaf, error) { return decodeAffine(KindSimilarity, ds, id) },
	ClassPolynomial:  func(ds, id string) (Leaf, error) { return decodePolynomial(ds, id) },
}

// envelope is the superset wire shape of every node kind. Pointer fields
// distinguish absent from present-but-zero.
type envelope struct {
	Type        string            `json:"type"`
	ClassName   string            `json:"className"`
	DataString  *string           `json:"dataString"`
	TransformID string            `json:"transformId"`
	SpecList    []json.RawMessage `json:"specList"`
	ID          string            `json:"id"`
	A           json.RawMessage   `json:"a"`
	B           json.RawMessage   `json:"b"`
	Lambda      *float64          `json:"lambda"`
	RefID       *string           `json:"refId"`
}

// Decode parses one interchange node, recursing into structural nodes.
// Unknown leaf class names degrade to [Unknown] so that specs from other
// producers round-trip; an unknown type discriminator is a format error.
func Decode(data []byte) (Transform, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "invalid transform spec")
	}
	return decodeEnvelope(&env)
}

func decodeEnvelope(env *envelope) (Transform, error) {
	typ := env.Type
	if typ == "" {
		typ = TypeLeaf
	}
	switch typ {
	case TypeLeaf:
		return decodeLeaf(env)
	case TypeList:
		if env.SpecList == nil {
			return nil, errors.New(errors.ErrCodeFormat, "list spec is missing specList")
		}
		l := &List{ID: env.ID, Transforms: make([]Transform, 0, len(env.SpecList))}
		for _, raw := range env.SpecList {
			member, err := Decode(raw)
			if err != nil {
				return nil, err
			}
			l.Transforms = append(l.Transforms, member)
		}
		return l, nil
	case TypeInterpolated:
		if env.A == nil || env.B == nil || env.Lambda == nil {
			return nil, errors.New(errors.ErrCodeFormat, "interpolated spec needs a, b and lambda")
		}
		a, err := Decode(env.A)
		if err != nil {
			return nil, err
		}
		b, err := Decode(env.B)
		if err != nil {
			return nil, err
		}
		return &Interpolated{A: a, B: b, Lambda: *env.Lambda}, nil
	case TypeRef:
		if env.RefID == nil {
			return nil, errors.New(errors.ErrCodeFormat, "ref spec is missing refId")
		}
		return &Reference{RefID: *env.RefID}, nil
	default:
		return nil, errors.New(errors.ErrCodeFormat, "unknown transform type %q", typ)
	}
}

func decodeLeaf(env *envelope) (Transform, error) {
	if env.ClassName == "" {
		return nil, errors.New(errors.ErrCodeFormat, "leaf spec is missing className")
	}
	if env.DataString == nil {
		return nil, errors.New(errors.ErrCodeFormat, "leaf spec is missing dataString")
	}
	if decode, ok := leafDecoders[env.ClassName]; ok {
		return decode(*env.DataString, env.TransformID)
	}
	return &Unknown{Class: env.ClassName, Data: *env.DataString, ID: env.TransformID}, nil
}

// DecodeLeaf parses a node that must be a leaf transform.
func DecodeLeaf(data []byte) (Leaf, error) {
	t, err := Decode(data)
	if err != nil {
		return nil, err
	}
	leaf, ok := t.(Leaf)
	if !ok {
		return nil, errors.New(errors.ErrCodeFormat, "expected a leaf transform spec")
	}
	return leaf, nil
}

// Encode renders a transform node to its interchange JSON.
func Encode(t Transform) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormat, err, "cannot encode transform spec")
	}
	return data, nil
}

type leafWire struct {
	Type        string `json:"type"`
	ClassName   string `json:"className"`
	DataString  string `json:"dataString"`
	TransformID string `json:"transformId,omitempty"`
}

// MarshalJSON renders the interchange form of the model.
func (a *Affine) MarshalJSON() ([]byte, error) {
	return json.Marshal(leafWire{
		Type:        TypeLeaf,
		ClassName:   a.ClassName(),
		DataString:  a.DataString(),
		TransformID: a.ID,
	})
}

// MarshalJSON renders the interchange form of the polynomial.
func (p *Polynomial) MarshalJSON() ([]byte, error) {
	return json.Marshal(leafWire{
		Type:        TypeLeaf,
		ClassName:   p.ClassName(),
		DataString:  p.DataString(),
		TransformID: p.ID,
	})
}

// MarshalJSON renders the preserved wire form of the unknown leaf.
func (u *Unknown) MarshalJSON() ([]byte, error) {
	return json.Marshal(leafWire{
		Type:        TypeLeaf,
		ClassName:   u.Class,
		DataString:  u.Data,
		TransformID: u.ID,
	})
}

// MarshalJSON renders the list and its members recursively. The specList
// field is always present, even when empty.
func (l *List) MarshalJSON() ([]byte, error) {
	members := l.Transforms
	if members == nil {
		members = []Transform{}
	}
	return json.Marshal(struct {
		Type     string      `json:"type"`
		SpecList []Transform `json:"specList"`
		ID       string      `json:"id,omitempty"`
	}{Type: TypeList, SpecList: members, ID: l.ID})
}

// MarshalJSON renders both sub-nodes recursively.
func (ip *Interpolated) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string    `json:"type"`
		A      Transform `json:"a"`
		B      Transform `json:"b"`
		Lambda float64   `json:"lambda"`
	}{Type: TypeInterpolated, A: ip.A, B: ip.B, Lambda: ip.Lambda})
}

// MarshalJSON renders the flat reference form.
func (r *Reference) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		RefID string `json:"refId"`
	}{Type: TypeRef, RefID: r.RefID})
}
