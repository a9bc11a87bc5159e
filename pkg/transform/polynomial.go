package transform

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/tilewarp/pkg/errors"
)

// Polynomial is a degree-n bivariate polynomial mapping. Coefficients are
// stored one row per output axis. Within a row they are ordered by total
// degree j and then by increasing power of y, so the coefficient at index k
// for degree j and power i multiplies x^(j-i)·y^i.
//
// The row length K and the order are tied by K = (order+1)(order+2)/2;
// [NewPolynomial] rejects coefficient counts that do not solve this
// equation exactly.
type Polynomial struct {
	params [2][]float64

	// ID is the optional transformId carried through the interchange form.
	ID string
}

// NewPolynomial builds a polynomial from a 2 x K coefficient matrix, one
// row per output axis.
func NewPolynomial(params [2][]float64) (*Polynomial, error) {
	if len(params[0]) != len(params[1]) {
		return nil, errors.New(errors.ErrCodeConversion,
			"coefficient rows differ in length: %d and %d", len(params[0]), len(params[1]))
	}
	if _, err := orderForCoefficients(len(params[0])); err != nil {
		return nil, err
	}
	return &Polynomial{params: params}, nil
}

// IdentityPolynomial returns the order-1 polynomial mapping every point to
// itself.
func IdentityPolynomial() *Polynomial {
	return &Polynomial{params: [2][]float64{{0, 1, 0}, {0, 0, 1}}}
}

// PolynomialFromAffine returns the order-1 polynomial that reproduces the
// affine mapping exactly: the constant terms carry the translation and the
// linear terms carry the matrix rows.
func PolynomialFromAffine(a *Affine) *Polynomial {
	return &Polynomial{params: [2][]float64{
		{a.B0, a.M00, a.M01},
		{a.B1, a.M10, a.M11},
	}}
}

// orderForCoefficients inverts K = (order+1)(order+2)/2.
func orderForCoefficients(k int) (int, error) {
	order := int(math.Round((math.Sqrt(float64(8*k+1)) - 3) / 2))
	if order < 0 || (order+1)*(order+2)/2 != k {
		return 0, errors.New(errors.ErrCodeConversion,
			"%d coefficients per axis do not define a polynomial order", k)
	}
	return order, nil
}

// Order returns the polynomial degree implied by the coefficient count.
func (p *Polynomial) Order() int {
	order, _ := orderForCoefficients(len(p.params[0]))
	return order
}

// Coefficients returns a copy of the 2 x K coefficient matrix.
func (p *Polynomial) Coefficients() [2][]float64 {
	var out [2][]float64
	for i, row := range p.params {
		out[i] = make([]float64, len(row))
		copy(out[i], row)
	}
	return out
}

// Apply evaluates both coefficient rows over the monomial basis.
func (p *Polynomial) Apply(pts []Point) ([]Point, error) {
	order := p.Order()
	out := make([]Point, len(pts))
	for n, pt := range pts {
		var x, y float64
		k := 0
		for j := 0; j <= order; j++ {
			for i := 0; i <= j; i++ {
				m := math.Pow(pt.X, float64(j-i)) * math.Pow(pt.Y, float64(i))
				x += p.params[0][k] * m
				y += p.params[1][k] * m
				k++
			}
		}
		out[n] = Point{X: x, Y: y}
	}
	return out, nil
}

// AsOrder returns an equivalent polynomial padded with zero coefficients up
// to the requested order. Converting down is not possible.
func (p *Polynomial) AsOrder(order int) (*Polynomial, error) {
	cur := p.Order()
	if cur > order {
		return nil, errors.New(errors.ErrCodeConversion,
			"cannot convert an order %d polynomial down to order %d", cur, order)
	}
	k := (order + 1) * (order + 2) / 2
	params := [2][]float64{make([]float64, k), make([]float64, k)}
	copy(params[0], p.params[0])
	copy(params[1], p.params[1])
	return &Polynomial{params: params}, nil
}

// ClassName returns the wire class name of the polynomial kind.
func (p *Polynomial) ClassName() string { return ClassPolynomial }

// TransformID returns the optional interchange identifier.
func (p *Polynomial) TransformID() string { return p.ID }

// DataString renders both coefficient rows flattened, axis 0 first, each
// value in normalized scientific notation.
func (p *Polynomial) DataString() string {
	parts := make([]string, 0, 2*len(p.params[0]))
	for _, row := range p.params {
		for _, c := range row {
			parts = append(parts, formatCoefficient(c))
		}
	}
	return strings.Join(parts, " ")
}

// formatCoefficient renders a coefficient in the shortest round-tripping
// form with any leading zero stripped from the exponent, the normalization
// the interchange format uses ("3.5267E-06" becomes "3.5267E-6").
func formatCoefficient(v float64) string {
	s := strconv.FormatFloat(v, 'G', -1, 64)
	s = strings.Replace(s, "E-0", "E-", 1)
	s = strings.Replace(s, "E+0", "E+", 1)
	return s
}

// decodePolynomial parses a flattened coefficient dataString.
func decodePolynomial(ds, id string) (*Polynomial, error) {
	vals, err := parseFloats(ds)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 || len(vals)%2 != 0 {
		return nil, errors.New(errors.ErrCodeFormat,
			"polynomial dataString needs an even number of coefficients, got %d", len(vals))
	}
	k := len(vals) / 2
	p, err := NewPolynomial([2][]float64{vals[:k], vals[k:]})
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

// FitPolynomial computes the order-n polynomial mapping src onto dst by
// total least squares: the coefficient vector is the right singular vector
// of the smallest singular value of the design matrix augmented with the
// destination coordinates.
func FitPolynomial(src, dst []Point, order int) (*Polynomial, error) {
	params, err := fitPolynomialParams(src, dst, order)
	if err != nil {
		return nil, err
	}
	k := len(params) / 2
	return &Polynomial{params: [2][]float64{params[:k], params[k:]}}, nil
}

func fitPolynomialParams(src, dst []Point, order int) ([]float64, error) {
	if order < 0 {
		return nil, errors.New(errors.ErrCodeEstimation,
			"polynomial order must be non-negative, got %d", order)
	}
	if len(src) != len(dst) {
		return nil, errors.New(errors.ErrCodeEstimation,
			"source has %d points but destination has %d", len(src), len(dst))
	}
	nc := (order + 1) * (order + 2)
	if nc > len(src) {
		return nil, errors.New(errors.ErrCodeEstimation,
			"order %d is too large to fit %d points", order, len(src))
	}

	rows := len(src)
	k := nc / 2
	a := mat.NewDense(2*rows, nc+1, nil)
	for r, p := range src {
		idx := 0
		for j := 0; j <= order; j++ {
			for i := 0; i <= j; i++ {
				m := math.Pow(p.X, float64(j-i)) * math.Pow(p.Y, float64(i))
				a.Set(r, idx, m)
				a.Set(rows+r, idx+k, m)
				idx++
			}
		}
		a.Set(r, nc, dst[r].X)
		a.Set(rows+r, nc, dst[r].Y)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, errors.New(errors.ErrCodeNumeric,
			"singular value decomposition of the design matrix did not converge")
	}
	s := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	// Right singular vector of the smallest singular value.
	minIdx := 0
	for i := range s {
		if s[i] < s[minIdx] {
			minIdx = i
		}
	}
	last := v.At(nc, minIdx)
	params := make([]float64, nc)
	for i := range params {
		params[i] = -v.At(i, minIdx) / last
	}
	return params, nil
}

const (
	defaultMaxTries = 100
	defaultAtol     = 1e-3
)

// EstimateOptions tunes the retry loop in [Polynomial.Estimate]. A nil
// options pointer selects the defaults.
type EstimateOptions struct {
	// MaxTries bounds the number of fit attempts. Defaults to 100.
	MaxTries int

	// SkipCoordCheck accepts the first fit without verifying that it maps
	// the source points onto the destination points within tolerance.
	SkipCoordCheck bool

	// Atol and Rtol are the absolute and relative tolerances of the
	// coordinate check. Atol defaults to 1e-3, Rtol to 0.
	Atol, Rtol float64
}

// Estimate fits the polynomial to the point correspondence and stores the
// accepted coefficients in place. Fitting is retried, bounded by MaxTries,
// while the solver fails numerically or the fitted coefficients do not map
// src onto dst within tolerance. The fit itself is deterministic, so the
// retry budget is a robustness bound rather than a search. On any failure
// the receiver's prior coefficients are left untouched.
func (p *Polynomial) Estimate(src, dst []Point, order int, opts *EstimateOptions) error {
	var o EstimateOptions
	if opts != nil {
		o = *opts
	}
	if o.MaxTries <= 0 {
		o.MaxTries = defaultMaxTries
	}
	if o.Atol == 0 {
		o.Atol = defaultAtol
	}

	var params []float64
	estimated := false
	for tries := 0; tries < o.MaxTries && !estimated; tries++ {
		fitted, err := fitPolynomialParams(src, dst, order)
		if err != nil {
			if errors.GetCode(err) == errors.ErrCodeNumeric {
				continue
			}
			return err
		}
		params = fitted
		estimated = o.SkipCoordCheck || coordCheck(src, dst, params, o.Atol, o.Rtol)
	}
	if !estimated {
		return errors.New(errors.ErrCodeEstimation,
			"could not fit polynomial in %d attempts", o.MaxTries)
	}

	k := len(params) / 2
	p.params = [2][]float64{params[:k], params[k:]}
	return nil
}

// coordCheck verifies that the fitted coefficients map src onto dst within
// the given absolute and relative tolerances.
func coordCheck(src, dst []Point, params []float64, atol, rtol float64) bool {
	k := len(params) / 2
	fitted := &Polynomial{params: [2][]float64{params[:k], params[k:]}}
	mapped, _ := fitted.Apply(src)
	for i := range mapped {
		// Written so that NaN fails the check.
		if !(math.Abs(mapped[i].X-dst[i].X) <= atol+rtol*math.Abs(dst[i].X)) {
			return false
		}
		if !(math.Abs(mapped[i].Y-dst[i].Y) <= atol+rtol*math.Abs(dst[i].Y)) {
			return false
		}
	}
	return true
}
