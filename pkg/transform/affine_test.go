package transform

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/matzehuels/tilewarp/pkg/errors"
)

func unitSquare() []Point {
	return []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
}

func checkPoints(t *testing.T, got, want []Point, tol float64) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, tol)); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func checkAffine(t *testing.T, got, want *Affine, tol float64) {
	t.Helper()
	pairs := []struct {
		name      string
		got, want float64
	}{
		{"M00", got.M00, want.M00},
		{"M01", got.M01, want.M01},
		{"M10", got.M10, want.M10},
		{"M11", got.M11, want.M11},
		{"B0", got.B0, want.B0},
		{"B1", got.B1, want.B1},
	}
	for _, p := range pairs {
		if math.Abs(p.got-p.want) > tol {
			t.Errorf("%s = %v, want %v", p.name, p.got, p.want)
		}
	}
}

func TestIdentityApply(t *testing.T) {
	pts := unitSquare()
	got, err := Identity().Apply(pts)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	checkPoints(t, got, pts, 0)
}

func TestApplyEmpty(t *testing.T) {
	got, err := NewTranslation(3, 4).Apply(nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != nil {
		t.Errorf("Apply(nil) = %v, want nil", got)
	}
}

func TestConstructorApply(t *testing.T) {
	tests := []struct {
		name string
		a    *Affine
		in   Point
		want Point
	}{
		{"Translation", NewTranslation(120, -45), Point{1, 2}, Point{121, -43}},
		{"RigidQuarterTurn", NewRigid(math.Pi/2, 0, 0), Point{1, 0}, Point{0, 1}},
		{"RigidWithOffset", NewRigid(math.Pi, 1, 1), Point{1, 0}, Point{0, 1}},
		{"Similarity", NewSimilarity(2, 0, 1, 1), Point{1, 1}, Point{3, 3}},
		{"ShearColumn", NewAffine(1, 0.5, 0, 1, 0, 0), Point{0, 2}, Point{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Apply([]Point{tt.in})
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			checkPoints(t, got, []Point{tt.want}, 1e-12)
		})
	}
}

func TestApplyInverseRoundTrip(t *testing.T) {
	a := NewAffine(1.5, 0.2, -0.3, 0.8, 10, -4)
	pts := unitSquare()

	fwd, err := a.Apply(pts)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	back, err := a.ApplyInverse(fwd)
	if err != nil {
		t.Fatalf("ApplyInverse: %v", err)
	}
	checkPoints(t, back, pts, 1e-12)
}

func TestInvertSingular(t *testing.T) {
	a := NewAffine(1, 2, 2, 4, 0, 0)
	if _, err := a.Invert(); errors.GetCode(err) != errors.ErrCodeNumeric {
		t.Errorf("Invert error = %v, want code %s", err, errors.ErrCodeNumeric)
	}
}

func TestConcatenateAppliesRightFirst(t *testing.T) {
	scale := NewAffine(2, 0, 0, 2, 0, 0)
	shift := NewTranslation(1, 1)

	// shift first, then scale
	c := scale.Concatenate(shift)
	got, err := c.Apply([]Point{{0, 0}})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	checkPoints(t, got, []Point{{2, 2}}, 1e-12)

	// sequential application over several points must agree
	pts := unitSquare()
	seq, _ := shift.Apply(pts)
	seq, _ = scale.Apply(seq)
	combined, _ := c.Apply(pts)
	checkPoints(t, combined, seq, 1e-12)
}

func TestConcatenateInverse(t *testing.T) {
	a := NewAffine(1.2, 0.4, -0.1, 0.9, 3, -7)
	inv, err := a.Invert()
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	checkAffine(t, a.Concatenate(inv), Identity(), 1e-12)
	checkAffine(t, inv.Concatenate(a), Identity(), 1e-12)
}

func TestDerivedProperties(t *testing.T) {
	a := NewSimilarity(2, math.Pi/6, 3, 4)

	sx, sy := a.Scale()
	if math.Abs(sx-2) > 1e-12 || math.Abs(sy-2) > 1e-12 {
		t.Errorf("Scale = (%v, %v), want (2, 2)", sx, sy)
	}
	if rot := a.Rotation(); math.Abs(rot-math.Pi/6) > 1e-12 {
		t.Errorf("Rotation = %v, want %v", rot, math.Pi/6)
	}
	if sh := a.Shear(); math.Abs(sh) > 1e-12 {
		t.Errorf("Shear = %v, want 0", sh)
	}
	if tx, ty := a.Translation(); tx != 3 || ty != 4 {
		t.Errorf("Translation = (%v, %v), want (3, 4)", tx, ty)
	}

	sheared := NewAffine(1, 0.5, 0, 1, 0, 0)
	if sh, want := sheared.Shear(), math.Atan2(-0.5, 1); math.Abs(sh-want) > 1e-12 {
		t.Errorf("Shear = %v, want %v", sh, want)
	}
}

func TestDataStringRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		a          *Affine
		wantFields int
	}{
		{"Affine", NewAffine(1.5, 0.2, -0.3, 0.8, 10.25, -4.5), 6},
		{"Translation", NewTranslation(120.5, -45.25), 2},
		{"Rigid", NewRigid(0.3, 10, -5), 3},
		{"Similarity", NewSimilarity(2, 0.3, 10, -5), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := tt.a.DataString()
			vals, err := parseFloats(ds)
			if err != nil {
				t.Fatalf("parseFloats(%q): %v", ds, err)
			}
			if len(vals) != tt.wantFields {
				t.Fatalf("dataString %q has %d values, want %d", ds, len(vals), tt.wantFields)
			}

			got, err := decodeAffine(tt.a.Kind, ds, "")
			if err != nil {
				t.Fatalf("decodeAffine: %v", err)
			}
			if got.Kind != tt.a.Kind {
				t.Errorf("Kind = %v, want %v", got.Kind, tt.a.Kind)
			}
			if got.ClassName() != tt.a.ClassName() {
				t.Errorf("ClassName = %q, want %q", got.ClassName(), tt.a.ClassName())
			}
			checkAffine(t, got, tt.a, 1e-9)
		})
	}
}

func TestDecodeAffineSixValueForm(t *testing.T) {
	// All kinds accept the full matrix form M00 M10 M01 M11 B0 B1.
	for _, kind := range []Kind{KindAffine, KindTranslation, KindRigid, KindSimilarity} {
		t.Run(kind.String(), func(t *testing.T) {
			a, err := decodeAffine(kind, "1 2 3 4 5 6", "t0")
			if err != nil {
				t.Fatalf("decodeAffine: %v", err)
			}
			want := &Affine{M00: 1, M01: 3, M10: 2, M11: 4, B0: 5, B1: 6}
			checkAffine(t, a, want, 0)
			if a.Kind != kind {
				t.Errorf("Kind = %v, want %v", a.Kind, kind)
			}
			if a.ID != "t0" {
				t.Errorf("ID = %q, want t0", a.ID)
			}
		})
	}
}

func TestDecodeAffineErrors(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		ds   string
	}{
		{"TooFewValues", KindAffine, "1 2 3"},
		{"WrongArity", KindTranslation, "1 2 3"},
		{"Empty", KindRigid, ""},
		{"BadFloat", KindAffine, "1 2 3 4 5 x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeAffine(tt.kind, tt.ds, "")
			if errors.GetCode(err) != errors.ErrCodeFormat {
				t.Errorf("decodeAffine(%q) error = %v, want code %s", tt.ds, err, errors.ErrCodeFormat)
			}
		})
	}
}

func fitGrid() []Point {
	var pts []Point
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			pts = append(pts, Point{float64(x) * 10, float64(y) * 10})
		}
	}
	return pts
}

func TestFitAffineRecovers(t *testing.T) {
	want := NewAffine(1.1, -0.4, 0.25, 0.9, 12, -7)
	src := fitGrid()
	dst, _ := want.Apply(src)

	got, err := FitAffine(src, dst)
	if err != nil {
		t.Fatalf("FitAffine: %v", err)
	}
	checkAffine(t, got, want, 1e-9)
}

func TestFitAffineRotationProperties(t *testing.T) {
	// Fitting a quarter turn clockwise keeps unit scale.
	src := unitSquare()
	dst := []Point{{0, 0}, {0, -1}, {1, -1}, {1, 0}}

	got, err := FitAffine(src, dst)
	if err != nil {
		t.Fatalf("FitAffine: %v", err)
	}
	sx, sy := got.Scale()
	if math.Abs(sx-1) > 1e-9 || math.Abs(sy-1) > 1e-9 {
		t.Errorf("Scale = (%v, %v), want (1, 1)", sx, sy)
	}
	if rot := got.Rotation(); math.Abs(rot+math.Pi/2) > 1e-9 {
		t.Errorf("Rotation = %v, want %v", rot, -math.Pi/2)
	}
}

func TestFitErrors(t *testing.T) {
	three := unitSquare()[:3]
	tests := []struct {
		name     string
		fit      func() (*Affine, error)
		wantCode errors.Code
	}{
		{"AffineTooFew", func() (*Affine, error) { return FitAffine(three[:2], three[:2]) }, errors.ErrCodeEstimation},
		{"RigidTooFew", func() (*Affine, error) { return FitRigid(three[:1], three[:1]) }, errors.ErrCodeEstimation},
		{"TranslationEmpty", func() (*Affine, error) { return FitTranslation(nil, nil) }, errors.ErrCodeEstimation},
		{"CountMismatch", func() (*Affine, error) { return FitAffine(three, three[:2]) }, errors.ErrCodeEstimation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fit(); errors.GetCode(err) != tt.wantCode {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestFitTranslation(t *testing.T) {
	src := unitSquare()
	want := NewTranslation(3, -2)
	dst, _ := want.Apply(src)

	got, err := FitTranslation(src, dst)
	if err != nil {
		t.Fatalf("FitTranslation: %v", err)
	}
	if got.Kind != KindTranslation {
		t.Errorf("Kind = %v, want %v", got.Kind, KindTranslation)
	}
	checkAffine(t, got, want, 1e-12)
}

func TestFitRigidRecovers(t *testing.T) {
	want := NewRigid(0.3, 10, -5)
	src := fitGrid()
	dst, _ := want.Apply(src)

	got, err := FitRigid(src, dst)
	if err != nil {
		t.Fatalf("FitRigid: %v", err)
	}
	if got.Kind != KindRigid {
		t.Errorf("Kind = %v, want %v", got.Kind, KindRigid)
	}
	checkAffine(t, got, want, 1e-9)

	sx, sy := got.Scale()
	if math.Abs(sx-1) > 1e-9 || math.Abs(sy-1) > 1e-9 {
		t.Errorf("Scale = (%v, %v), want (1, 1)", sx, sy)
	}
}

func TestFitSimilarityRecovers(t *testing.T) {
	want := NewSimilarity(2.5, -0.7, 3, 8)
	src := fitGrid()
	dst, _ := want.Apply(src)

	got, err := FitSimilarity(src, dst)
	if err != nil {
		t.Fatalf("FitSimilarity: %v", err)
	}
	if got.Kind != KindSimilarity {
		t.Errorf("Kind = %v, want %v", got.Kind, KindSimilarity)
	}
	checkAffine(t, got, want, 1e-9)
}

func TestFitSimilarityDegenerate(t *testing.T) {
	src := []Point{{1, 1}, {1, 1}, {1, 1}}
	if _, err := FitSimilarity(src, src); errors.GetCode(err) != errors.ErrCodeEstimation {
		t.Errorf("error = %v, want code %s", err, errors.ErrCodeEstimation)
	}
}

func TestEstimateDispatch(t *testing.T) {
	tests := []struct {
		name string
		want *Affine
	}{
		{"Affine", NewAffine(1.1, -0.4, 0.25, 0.9, 12, -7)},
		{"Translation", NewTranslation(3, 4)},
		{"Rigid", NewRigid(0.5, 1, 2)},
		{"Similarity", NewSimilarity(1.5, 0.5, 1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fitGrid()
			dst, _ := tt.want.Apply(src)

			a := &Affine{Kind: tt.want.Kind, ID: "t7"}
			if err := a.Estimate(src, dst); err != nil {
				t.Fatalf("Estimate: %v", err)
			}
			checkAffine(t, a, tt.want, 1e-9)
			if a.Kind != tt.want.Kind {
				t.Errorf("Kind = %v, want %v", a.Kind, tt.want.Kind)
			}
			if a.ID != "t7" {
				t.Errorf("ID = %q, want t7", a.ID)
			}
		})
	}
}

func TestEstimateFailureKeepsParameters(t *testing.T) {
	a := NewRigid(0.5, 1, 2)
	a.ID = "keep"
	before := *a

	err := a.Estimate([]Point{{0, 0}}, []Point{{1, 1}})
	if errors.GetCode(err) != errors.ErrCodeEstimation {
		t.Fatalf("Estimate error = %v, want code %s", err, errors.ErrCodeEstimation)
	}
	if *a != before {
		t.Errorf("Estimate mutated the model on failure: %+v", *a)
	}
}
