package transform

// ResolvePoints pushes points through a chain of transforms in order.
// Each member sees the output of the one before it; lists recurse with
// the running point set.
func ResolvePoints(chain []Transform, pts []Point) ([]Point, error) {
	out := pts
	var err error
	for _, t := range chain {
		if l, ok := t.(*List); ok {
			out, err = ResolvePoints(l.Transforms, out)
		} else {
			out, err = t.Apply(out)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Flatten expands nested lists into a single flat chain. Only [List]
// nodes are descended into; interpolated nodes and leaves pass through
// untouched.
func Flatten(chain []Transform) []Transform {
	flat := make([]Transform, 0, len(chain))
	for _, t := range chain {
		if l, ok := t.(*List); ok {
			flat = append(flat, Flatten(l.Transforms)...)
		} else {
			flat = append(flat, t)
		}
	}
	return flat
}

func allAffine(chain []Transform) bool {
	for _, t := range chain {
		leaf, ok := t.(Leaf)
		if !ok || leaf.ClassName() != ClassAffine {
			return false
		}
	}
	return true
}

// Collapse replaces a transform chain with a single leaf fitted to its
// net effect on srcPts. When the flattened chain is purely affine the
// result is an exactly fitted [Affine]; otherwise a degree-order
// [Polynomial] is fitted by least squares. An empty chain collapses to
// the identity affine.
func Collapse(chain []Transform, srcPts []Point, order int) (Leaf, error) {
	dstPts, err := ResolvePoints(chain, srcPts)
	if err != nil {
		return nil, err
	}
	if allAffine(Flatten(chain)) {
		return FitAffine(srcPts, dstPts)
	}
	poly := &Polynomial{}
	if err := poly.Estimate(srcPts, dstPts, order, nil); err != nil {
		return nil, err
	}
	return poly, nil
}
