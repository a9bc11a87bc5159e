package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/observability"
	"github.com/matzehuels/tilewarp/pkg/tilespec"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

func TestMemStoreTransformRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	lens := transform.NewTranslation(100, 50)
	lens.ID = "lens.0"
	id, err := s.PutTransform(ctx, "montage", lens)
	if err != nil {
		t.Fatalf("PutTransform() error = %v", err)
	}
	if id != "lens.0" {
		t.Errorf("id = %q, want existing id preserved", id)
	}

	got, err := s.GetTransform(ctx, "montage", "lens.0")
	if err != nil {
		t.Fatalf("GetTransform() error = %v", err)
	}
	a, ok := got.(*transform.Affine)
	if !ok {
		t.Fatalf("GetTransform() = %T, want *transform.Affine", got)
	}
	if a.B0 != 100 || a.B1 != 50 {
		t.Errorf("translation = (%v, %v), want (100, 50)", a.B0, a.B1)
	}

	ids, err := s.ListTransforms(ctx, "montage")
	if err != nil {
		t.Fatalf("ListTransforms() error = %v", err)
	}
	if diff := cmp.Diff([]string{"lens.0"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	stacks, err := s.Stacks(ctx)
	if err != nil {
		t.Fatalf("Stacks() error = %v", err)
	}
	if diff := cmp.Diff([]string{"montage"}, stacks); diff != "" {
		t.Errorf("stacks mismatch (-want +got):\n%s", diff)
	}
}

func TestMemStorePutAssignsID(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	a := transform.Identity()
	id, err := s.PutTransform(ctx, "montage", a)
	if err != nil {
		t.Fatalf("PutTransform() error = %v", err)
	}
	if id == "" {
		t.Fatal("PutTransform() assigned empty id")
	}
	if a.ID != id {
		t.Errorf("spec ID = %q, want assigned id %q written back", a.ID, id)
	}
	if err := errors.ValidateTransformID(id); err != nil {
		t.Errorf("assigned id %q is invalid: %v", id, err)
	}

	if _, err := s.GetTransform(ctx, "montage", id); err != nil {
		t.Errorf("GetTransform(assigned id) error = %v", err)
	}
}

func TestMemStorePutRejectsBareRef(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.PutTransform(ctx, "montage", &transform.Reference{RefID: "x"})
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}
}

func TestMemStorePutValidatesClassNames(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	bad := transform.NewList(&transform.Unknown{Class: "not a class name!", Data: "1 2 3"})
	bad.ID = "bad"
	_, err := s.PutTransform(ctx, "montage", bad)
	if errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
	}

	// Unknown classes with plausible names are storable.
	spline := transform.NewList(&transform.Unknown{
		Class: "mpicbg.trakem2.transform.ThinPlateSplineTransform",
		Data:  "1 0 0",
	})
	spline.ID = "spline"
	if _, err := s.PutTransform(ctx, "montage", spline); err != nil {
		t.Errorf("PutTransform() error = %v", err)
	}
}

func TestMemStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	tests := []struct {
		name     string
		fn       func() error
		wantCode errors.Code
	}{
		{
			"MissingTransform",
			func() error { _, err := s.GetTransform(ctx, "montage", "ghost"); return err },
			errors.ErrCodeNotFound,
		},
		{
			"BadStackName",
			func() error { _, err := s.GetTransform(ctx, ".hidden", "t0"); return err },
			errors.ErrCodeInvalidStack,
		},
		{
			"BadTransformID",
			func() error { _, err := s.GetTransform(ctx, "montage", "a/b"); return err },
			errors.ErrCodeInvalidID,
		},
		{
			"MissingTile",
			func() error { _, err := s.GetTileSpec(ctx, "montage", "ghost"); return err },
			errors.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := errors.GetCode(tt.fn()); code != tt.wantCode {
				t.Errorf("code = %v, want %v", code, tt.wantCode)
			}
		})
	}
}

func TestMemStoreTileSpecs(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	ts := &tilespec.TileSpec{
		TileID: "tile.0.0",
		Z:      1,
		Width:  2048, Height: 2048,
		Transforms: transform.NewList(transform.NewTranslation(10, 20)),
	}
	if err := s.PutTileSpec(ctx, "montage", ts); err != nil {
		t.Fatalf("PutTileSpec() error = %v", err)
	}

	got, err := s.GetTileSpec(ctx, "montage", "tile.0.0")
	if err != nil {
		t.Fatalf("GetTileSpec() error = %v", err)
	}
	if got.Width != 2048 || got.Transforms == nil {
		t.Errorf("GetTileSpec() = %+v", got)
	}

	// Mutating the returned spec must not touch the stored copy.
	got.Width = 1
	fresh, err := s.GetTileSpec(ctx, "montage", "tile.0.0")
	if err != nil {
		t.Fatalf("GetTileSpec() error = %v", err)
	}
	if fresh.Width != 2048 {
		t.Errorf("stored spec mutated through returned copy")
	}

	bad := &tilespec.TileSpec{TileID: "", Width: 1, Height: 1}
	if code := errors.GetCode(s.PutTileSpec(ctx, "montage", bad)); code != errors.ErrCodeInvalidID {
		t.Errorf("code = %v, want %v", code, errors.ErrCodeInvalidID)
	}
}

// seedStore loads a stack with a lens transform, a montage list that
// references it, and a list pointing back at itself through another list.
func seedStore(t *testing.T) *MemStore {
	t.Helper()
	ctx := context.Background()
	s := NewMemStore()

	lens := transform.NewTranslation(5, -3)
	lens.ID = "lens"
	if _, err := s.PutTransform(ctx, "montage", lens); err != nil {
		t.Fatal(err)
	}

	align := transform.NewList(&transform.Reference{RefID: "lens"}, transform.NewTranslation(100, 200))
	align.ID = "align"
	if _, err := s.PutTransform(ctx, "montage", align); err != nil {
		t.Fatal(err)
	}

	loopA := transform.NewList(&transform.Reference{RefID: "loop.b"})
	loopA.ID = "loop.a"
	loopB := transform.NewList(&transform.Reference{RefID: "loop.a"})
	loopB.ID = "loop.b"
	for _, l := range []*transform.List{loopA, loopB} {
		if _, err := s.PutTransform(ctx, "montage", l); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestResolveLeafPassthrough(t *testing.T) {
	s := seedStore(t)
	a := transform.NewRigid(0.5, 1, 2)
	got, err := Resolve(context.Background(), s, "montage", a)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res, ok := got.(*transform.Affine); !ok || res != a {
		t.Errorf("Resolve() = %v, want the leaf itself", got)
	}
}

func TestResolveRef(t *testing.T) {
	s := seedStore(t)
	got, err := Resolve(context.Background(), s, "montage", &transform.Reference{RefID: "lens"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	a, ok := got.(*transform.Affine)
	if !ok {
		t.Fatalf("Resolve() = %T, want *transform.Affine", got)
	}
	if a.B0 != 5 || a.B1 != -3 {
		t.Errorf("resolved translation = (%v, %v), want (5, -3)", a.B0, a.B1)
	}
}

func TestResolveNestedList(t *testing.T) {
	s := seedStore(t)

	// align is a list whose first member is a ref; resolving keeps the
	// nesting and replaces only the ref.
	got, err := Resolve(context.Background(), s, "montage", &transform.Reference{RefID: "align"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	l, ok := got.(*transform.List)
	if !ok {
		t.Fatalf("Resolve() = %T, want *transform.List", got)
	}
	if len(l.Transforms) != 2 {
		t.Fatalf("len = %d, want 2", len(l.Transforms))
	}
	if _, ok := l.Transforms[0].(*transform.Affine); !ok {
		t.Errorf("member 0 = %T, want resolved *transform.Affine", l.Transforms[0])
	}

	pts, err := transform.ResolvePoints([]transform.Transform{got}, []transform.Point{{X: 0, Y: 0}})
	if err != nil {
		t.Fatalf("ResolvePoints() error = %v", err)
	}
	if pts[0].X != 105 || pts[0].Y != 197 {
		t.Errorf("origin maps to (%v, %v), want (105, 197)", pts[0].X, pts[0].Y)
	}
}

func TestResolveInterpolated(t *testing.T) {
	s := seedStore(t)
	ip := &transform.Interpolated{
		A:      &transform.Reference{RefID: "lens"},
		B:      transform.Identity(),
		Lambda: 0.5,
	}
	got, err := Resolve(context.Background(), s, "montage", ip)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	res, ok := got.(*transform.Interpolated)
	if !ok {
		t.Fatalf("Resolve() = %T, want *transform.Interpolated", got)
	}
	if _, ok := res.A.(*transform.Affine); !ok {
		t.Errorf("A = %T, want resolved *transform.Affine", res.A)
	}

	pts, err := res.Apply([]transform.Point{{X: 0, Y: 0}})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if pts[0].X != 2.5 || pts[0].Y != -1.5 {
		t.Errorf("blend = (%v, %v), want (2.5, -1.5)", pts[0].X, pts[0].Y)
	}
}

func TestResolveSiblingReuse(t *testing.T) {
	s := seedStore(t)
	l := transform.NewList(
		&transform.Reference{RefID: "lens"},
		&transform.Reference{RefID: "lens"},
	)
	got, err := Resolve(context.Background(), s, "montage", l)
	if err != nil {
		t.Fatalf("Resolve() error = %v, same ref in siblings is legal", err)
	}
	res := got.(*transform.List)
	if len(res.Transforms) != 2 {
		t.Fatalf("len = %d, want 2", len(res.Transforms))
	}
}

func TestResolveCycle(t *testing.T) {
	s := seedStore(t)
	_, err := Resolve(context.Background(), s, "montage", &transform.Reference{RefID: "loop.a"})
	if errors.GetCode(err) != errors.ErrCodeRefCycle {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeRefCycle)
	}
}

func TestResolveUnknownRef(t *testing.T) {
	s := seedStore(t)
	_, err := Resolve(context.Background(), s, "montage", &transform.Reference{RefID: "ghost"})
	if errors.GetCode(err) != errors.ErrCodeUnresolvedRef {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeUnresolvedRef)
	}
}

type countingStoreHooks struct {
	observability.NoopStoreHooks
	resolves int
	refs     int
}

func (h *countingStoreHooks) OnResolve(ctx context.Context, stack string, refs int, _ time.Duration, err error) {
	h.resolves++
	h.refs = refs
}

func TestResolveEmitsHook(t *testing.T) {
	hooks := &countingStoreHooks{}
	observability.SetStoreHooks(hooks)
	defer observability.Reset()

	s := seedStore(t)
	if _, err := Resolve(context.Background(), s, "montage", &transform.Reference{RefID: "align"}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if hooks.resolves != 1 {
		t.Errorf("resolves = %d, want 1", hooks.resolves)
	}
	// The align ref plus the lens ref inside its target.
	if hooks.refs != 2 {
		t.Errorf("refs = %d, want 2", hooks.refs)
	}
}
