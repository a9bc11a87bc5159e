package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/tilewarp/pkg/errors"
)

// Wire class names of the leaf transform kinds understood by mpicbg-based
// consumers. These strings are part of the interchange contract and must
// not be altered.
const (
	ClassAffine      = "mpicbg.trakem2.transform.AffineModel2D"
	ClassTranslation = "mpicbg.trakem2.transform.TranslationModel2D"
	ClassRigid       = "mpicbg.trakem2.transform.RigidModel2D"
	ClassSimilarity  = "mpicbg.trakem2.transform.SimilarityModel2D"
	ClassPolynomial  = "mpicbg.trakem2.transform.PolynomialTransform2D"
)

// Kind selects the constraint family of an affine-class model. All four
// kinds share the same matrix storage; the kind decides which fit strategy
// [Affine.Estimate] dispatches to and how the dataString is encoded and
// decoded.
type Kind int

const (
	// KindAffine is the unconstrained six-parameter model.
	KindAffine Kind = iota
	// KindTranslation fixes the linear block at identity and fits only
	// the translation column.
	KindTranslation
	// KindRigid constrains the linear block to a rotation. The constraint
	// is enforced by the fitting algorithm, not validated on construction:
	// callers may build invalid rigid models from raw parameters.
	KindRigid
	// KindSimilarity constrains the linear block to a uniform scale times
	// a rotation.
	KindSimilarity
)

// String returns the kind's lowercase name.
func (k Kind) String() string {
	switch k {
	case KindTranslation:
		return "translation"
	case KindRigid:
		return "rigid"
	case KindSimilarity:
		return "similarity"
	default:
		return "affine"
	}
}

// Affine is a 2-D affine map x' = M·x + B stored as six scalars laid out as
//
//	| M00 M01 B0 |
//	| M10 M11 B1 |
//	|  0   0   1 |
//
// The six fields are the single source of truth; the homogeneous bottom row
// is implicit and never stored. The zero value is a degenerate all-zero
// affine model, so use the constructors.
type Affine struct {
	M00, M01, M10, M11 float64
	B0, B1             float64

	// Kind selects the fit strategy and dataString form.
	Kind Kind

	// ID is the optional transformId carried through the interchange form.
	ID string
}

// NewAffine returns an unconstrained affine model with the given matrix
// entries.
func NewAffine(m00, m01, m10, m11, b0, b1 float64) *Affine {
	return &Affine{M00: m00, M01: m01, M10: m10, M11: m11, B0: b0, B1: b1, Kind: KindAffine}
}

// Identity returns the identity affine model.
func Identity() *Affine {
	return NewAffine(1, 0, 0, 1, 0, 0)
}

// NewTranslation returns a translation model moving points by (tx, ty).
func NewTranslation(tx, ty float64) *Affine {
	return &Affine{M00: 1, M11: 1, B0: tx, B1: ty, Kind: KindTranslation}
}

// NewRigid returns a rigid model rotating counter-clockwise by theta
// radians and translating by (tx, ty).
func NewRigid(theta, tx, ty float64) *Affine {
	sin, cos := math.Sincos(theta)
	return &Affine{M00: cos, M01: -sin, M10: sin, M11: cos, B0: tx, B1: ty, Kind: KindRigid}
}

// NewSimilarity returns a similarity model with uniform scale s, rotation
// theta and translation (tx, ty).
func NewSimilarity(s, theta, tx, ty float64) *Affine {
	sin, cos := math.Sincos(theta)
	return &Affine{M00: s * cos, M01: -s * sin, M10: s * sin, M11: s * cos, B0: tx, B1: ty, Kind: KindSimilarity}
}

// matrix materializes the homogeneous 3x3 form.
func (a *Affine) matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		a.M00, a.M01, a.B0,
		a.M10, a.M11, a.B1,
		0, 0, 1,
	})
}

// Apply maps each point through the model's homogeneous matrix.
func (a *Affine) Apply(pts []Point) ([]Point, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	var out mat.Dense
	out.Mul(homogeneous(pts), a.matrix().T())
	return dehomogenize(&out), nil
}

// ApplyInverse maps each point through the inverse of the model's matrix.
// Singular models cannot be inverted.
func (a *Affine) ApplyInverse(pts []Point) ([]Point, error) {
	inv, err := a.Invert()
	if err != nil {
		return nil, err
	}
	return inv.Apply(pts)
}

// Concatenate returns a new unconstrained affine model that applies other
// first and then a. Translation is carried through a's linear block.
func (a *Affine) Concatenate(other *Affine) *Affine {
	return NewAffine(
		a.M00*other.M00+a.M01*other.M10,
		a.M00*other.M01+a.M01*other.M11,
		a.M10*other.M00+a.M11*other.M10,
		a.M10*other.M01+a.M11*other.M11,
		a.M00*other.B0+a.M01*other.B1+a.B0,
		a.M10*other.B0+a.M11*other.B1+a.B1,
	)
}

// Invert returns a new unconstrained affine model that exactly undoes a.
func (a *Affine) Invert() (*Affine, error) {
	det := a.M00*a.M11 - a.M01*a.M10
	if det == 0 {
		return nil, errors.New(errors.ErrCodeNumeric, "affine matrix is singular and cannot be inverted")
	}
	inv := NewAffine(a.M11/det, -a.M01/det, -a.M10/det, a.M00/det, 0, 0)
	inv.B0 = -(inv.M00*a.B0 + inv.M01*a.B1)
	inv.B1 = -(inv.M10*a.B0 + inv.M11*a.B1)
	return inv, nil
}

// Scale returns the x and y scale factors, the L2 norms of the first two
// matrix columns.
func (a *Affine) Scale() (sx, sy float64) {
	return math.Hypot(a.M00, a.M10), math.Hypot(a.M01, a.M11)
}

// Rotation returns the counter-clockwise rotation angle in radians.
func (a *Affine) Rotation() float64 {
	return math.Atan2(a.M10, a.M00)
}

// Shear returns the counter-clockwise shear angle in radians.
func (a *Affine) Shear() float64 {
	return math.Atan2(-a.M01, a.M11) - a.Rotation()
}

// Translation returns the translation components.
func (a *Affine) Translation() (tx, ty float64) {
	return a.B0, a.B1
}

// ClassName returns the wire class name for the model's kind.
func (a *Affine) ClassName() string {
	switch a.Kind {
	case KindTranslation:
		return ClassTranslation
	case KindRigid:
		return ClassRigid
	case KindSimilarity:
		return ClassSimilarity
	default:
		return ClassAffine
	}
}

// TransformID returns the optional interchange identifier.
func (a *Affine) TransformID() string { return a.ID }

// DataString renders the canonical text encoding. Unconstrained models
// encode the six matrix entries in the order M00 M10 M01 M11 B0 B1; the
// constrained kinds encode their compact parameter forms so that the
// encoding a kind emits is the one its decoder expects.
func (a *Affine) DataString() string {
	switch a.Kind {
	case KindTranslation:
		return fmt.Sprintf("%.10f %.10f", a.B0, a.B1)
	case KindRigid:
		return fmt.Sprintf("%.10f %.10f %.10f", a.Rotation(), a.B0, a.B1)
	case KindSimilarity:
		sx, _ := a.Scale()
		return fmt.Sprintf("%.10f %.10f %.10f %.10f", sx, a.Rotation(), a.B0, a.B1)
	default:
		return fmt.Sprintf("%.10f %.10f %.10f %.10f %.10f %.10f",
			a.M00, a.M10, a.M01, a.M11, a.B0, a.B1)
	}
}

// String renders the matrix for logs and error messages.
func (a *Affine) String() string {
	return fmt.Sprintf("M=[[%f,%f],[%f,%f]] B=[%f,%f]", a.M00, a.M01, a.M10, a.M11, a.B0, a.B1)
}

// decodeAffine parses a dataString for the given kind. Every kind accepts
// the six-value affine form; the constrained kinds also accept their
// compact parameter forms ("tx ty", "theta tx ty" and "s theta tx ty").
func decodeAffine(kind Kind, ds, id string) (*Affine, error) {
	vals, err := parseFloats(ds)
	if err != nil {
		return nil, err
	}

	var a *Affine
	switch {
	case len(vals) == 6:
		a = NewAffine(vals[0], vals[2], vals[1], vals[3], vals[4], vals[5])
		a.Kind = kind
	case kind == KindTranslation && len(vals) == 2:
		a = NewTranslation(vals[0], vals[1])
	case kind == KindRigid && len(vals) == 3:
		a = NewRigid(vals[0], vals[1], vals[2])
	case kind == KindSimilarity && len(vals) == 4:
		a = NewSimilarity(vals[0], vals[1], vals[2], vals[3])
	default:
		return nil, errors.New(errors.ErrCodeFormat,
			"%s dataString has %d values, want %s", kind, len(vals), affineArity(kind))
	}
	a.ID = id
	return a, nil
}

// affineArity names the accepted dataString value counts per kind.
func affineArity(kind Kind) string {
	switch kind {
	case KindTranslation:
		return "2 or 6"
	case KindRigid:
		return "3 or 6"
	case KindSimilarity:
		return "4 or 6"
	default:
		return "6"
	}
}

// parseFloats splits a dataString into float64 values.
func parseFloats(ds string) ([]float64, error) {
	fields := strings.Fields(ds)
	vals := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFormat, err, "invalid dataString value %q", f)
		}
		vals[i] = v
	}
	return vals, nil
}

// checkPairs validates a point correspondence for fitting.
func checkPairs(src, dst []Point, min int) error {
	if len(src) != len(dst) {
		return errors.New(errors.ErrCodeEstimation,
			"source has %d points but destination has %d", len(src), len(dst))
	}
	if len(src) < min {
		return errors.New(errors.ErrCodeEstimation,
			"need at least %d point pairs, got %d", min, len(src))
	}
	return nil
}

// FitAffine computes the least squares affine model mapping src onto dst.
// At least three point pairs are required. Each pair contributes the two
// stacked rows [x y 0 0 1 0] and [0 0 x y 0 1] of an overdetermined system
// solved for the six parameters.
func FitAffine(src, dst []Point) (*Affine, error) {
	if err := checkPairs(src, dst, 3); err != nil {
		return nil, err
	}
	n := len(src)
	m := mat.NewDense(2*n, 6, nil)
	y := mat.NewVecDense(2*n, nil)
	for i, p := range src {
		m.SetRow(2*i, []float64{p.X, p.Y, 0, 0, 1, 0})
		m.SetRow(2*i+1, []float64{0, 0, p.X, p.Y, 0, 1})
		y.SetVec(2*i, dst[i].X)
		y.SetVec(2*i+1, dst[i].Y)
	}
	var theta mat.VecDense
	if err := theta.SolveVec(m, y); err != nil {
		return nil, errors.Wrap(errors.ErrCodeEstimation, err, "affine least squares solve failed")
	}
	return NewAffine(theta.AtVec(0), theta.AtVec(1), theta.AtVec(2),
		theta.AtVec(3), theta.AtVec(4), theta.AtVec(5)), nil
}

// FitTranslation computes the translation moving the centroid of src onto
// the centroid of dst.
func FitTranslation(src, dst []Point) (*Affine, error) {
	if err := checkPairs(src, dst, 1); err != nil {
		return nil, err
	}
	sx, sy := centroid(src)
	dx, dy := centroid(dst)
	return NewTranslation(dx-sx, dy-sy), nil
}

// FitRigid estimates the rotation and translation mapping src onto dst
// using the Umeyama method with the scale fixed at one.
func FitRigid(src, dst []Point) (*Affine, error) {
	return fitUmeyama(src, dst, KindRigid, true)
}

// FitSimilarity estimates the uniform scale, rotation and translation
// mapping src onto dst using the Umeyama method.
func FitSimilarity(src, dst []Point) (*Affine, error) {
	return fitUmeyama(src, dst, KindSimilarity, false)
}

// eps is the IEEE-754 double precision machine epsilon.
const eps = 2.220446049250313e-16

func fitUmeyama(src, dst []Point, kind Kind, rigid bool) (*Affine, error) {
	if err := checkPairs(src, dst, 2); err != nil {
		return nil, err
	}
	n := float64(len(src))
	smx, smy := centroid(src)
	dmx, dmy := centroid(dst)

	// Cross-covariance of the centered point sets, and the summed
	// per-axis variance of the centered source.
	var c00, c01, c10, c11, srcVar float64
	for i := range src {
		sx, sy := src[i].X-smx, src[i].Y-smy
		dx, dy := dst[i].X-dmx, dst[i].Y-dmy
		c00 += dx * sx
		c01 += dx * sy
		c10 += dy * sx
		c11 += dy * sy
		srcVar += sx*sx + sy*sy
	}
	cov := mat.NewDense(2, 2, []float64{c00 / n, c01 / n, c10 / n, c11 / n})
	srcVar /= n

	// Reflection correction: flip the last axis when the covariance has
	// negative determinant.
	d1 := 1.0
	if mat.Det(cov) < 0 {
		d1 = -1
	}

	var svd mat.SVD
	if !svd.Factorize(cov, mat.SVDFull) {
		return nil, errors.New(errors.ErrCodeEstimation,
			"singular value decomposition of cross-covariance failed")
	}
	s := svd.Values(nil)
	rank := svdRank(s, 2)
	if rank == 0 {
		return nil, errors.New(errors.ErrCodeEstimation,
			"cross-covariance has rank zero, point configuration is degenerate")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	if rank == 1 {
		if mat.Det(&u)*mat.Det(&v) > 0 {
			r.Mul(&u, v.T())
		} else {
			var ud mat.Dense
			ud.Mul(&u, mat.NewDense(2, 2, []float64{1, 0, 0, -1}))
			r.Mul(&ud, v.T())
		}
	} else {
		var ud mat.Dense
		ud.Mul(&u, mat.NewDense(2, 2, []float64{1, 0, 0, d1}))
		r.Mul(&ud, v.T())
	}

	scale := 1.0
	if !rigid {
		scale = (s[0] + s[1]*d1) / srcVar
	}

	a := &Affine{
		M00: scale * r.At(0, 0), M01: scale * r.At(0, 1),
		M10: scale * r.At(1, 0), M11: scale * r.At(1, 1),
		Kind: kind,
	}
	a.B0 = dmx - (a.M00*smx + a.M01*smy)
	a.B1 = dmy - (a.M10*smx + a.M11*smy)
	return a, nil
}

// svdRank counts singular values above the conventional tolerance
// max(s) * dim * eps.
func svdRank(s []float64, dim int) int {
	tol := s[0] * float64(dim) * eps
	rank := 0
	for _, sv := range s {
		if sv > tol {
			rank++
		}
	}
	return rank
}

// Estimate fits the model to the point correspondence and stores the
// result in place, dispatching on the model's kind. On failure the
// receiver's parameters are left untouched.
func (a *Affine) Estimate(src, dst []Point) error {
	var fitted *Affine
	var err error
	switch a.Kind {
	case KindTranslation:
		fitted, err = FitTranslation(src, dst)
	case KindRigid:
		fitted, err = FitRigid(src, dst)
	case KindSimilarity:
		fitted, err = FitSimilarity(src, dst)
	default:
		fitted, err = FitAffine(src, dst)
	}
	if err != nil {
		return err
	}
	a.M00, a.M01, a.M10, a.M11 = fitted.M00, fitted.M01, fitted.M10, fitted.M11
	a.B0, a.B1 = fitted.B0, fitted.B1
	return nil
}
