package renderws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/tilewarp/pkg/cache"
	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/httputil"
	"github.com/matzehuels/tilewarp/pkg/store"
	"github.com/matzehuels/tilewarp/pkg/tilespec"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// newTestClient points a Client at an in-process Server over st.
func newTestClient(t *testing.T, st store.Store, c cache.Cache) *Client {
	t.Helper()
	srv := httptest.NewServer(NewServer(st, nil))
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientOptions{BaseURL: srv.URL + "/render-ws/v1", Cache: c})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.http = srv.Client()
	return client
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient(ClientOptions{BaseURL: "render.example.org"})
	if err == nil {
		t.Fatal("NewClient() should reject a URL without a scheme")
	}
}

func TestClientServerTransformRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, store.NewMemStore(), nil)

	lens := transform.NewTranslation(100, 50)
	lens.ID = "lens.0"
	id, err := client.PutTransform(ctx, "montage", lens)
	if err != nil {
		t.Fatalf("PutTransform() error = %v", err)
	}
	if id != "lens.0" {
		t.Errorf("id = %q, want existing id preserved", id)
	}

	got, err := client.GetTransform(ctx, "montage", "lens.0")
	if err != nil {
		t.Fatalf("GetTransform() error = %v", err)
	}
	a, ok := got.(*transform.Affine)
	if !ok {
		t.Fatalf("GetTransform() = %T, want *transform.Affine", got)
	}
	if a.B0 != 100 || a.B1 != 50 || a.ID != "lens.0" {
		t.Errorf("round trip = %+v", a)
	}

	ids, err := client.ListTransforms(ctx, "montage")
	if err != nil {
		t.Fatalf("ListTransforms() error = %v", err)
	}
	if diff := cmp.Diff([]string{"lens.0"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}

	stacks, err := client.Stacks(ctx)
	if err != nil {
		t.Fatalf("Stacks() error = %v", err)
	}
	if diff := cmp.Diff([]string{"montage"}, stacks); diff != "" {
		t.Errorf("stacks mismatch (-want +got):\n%s", diff)
	}
}

func TestClientPutAssignsID(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, store.NewMemStore(), nil)

	id, err := client.PutTransform(ctx, "montage", transform.Identity())
	if err != nil {
		t.Fatalf("PutTransform() error = %v", err)
	}
	if id == "" {
		t.Fatal("PutTransform() returned empty id")
	}
	if _, err := client.GetTransform(ctx, "montage", id); err != nil {
		t.Errorf("GetTransform(assigned id) error = %v", err)
	}
}

func TestClientGetTransformNotFound(t *testing.T) {
	client := newTestClient(t, store.NewMemStore(), nil)
	_, err := client.GetTransform(context.Background(), "montage", "ghost")
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeNotFound)
	}
}

func TestClientRejectsBadStackName(t *testing.T) {
	client := newTestClient(t, store.NewMemStore(), nil)
	_, err := client.GetTransform(context.Background(), ".hidden", "t0")
	if errors.GetCode(err) != errors.ErrCodeInvalidStack {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidStack)
	}
}

func TestClientTileSpecRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, store.NewMemStore(), nil)

	ts := &tilespec.TileSpec{
		TileID: "tile.0.0",
		Z:      2,
		Width:  1024, Height: 768,
		Transforms: transform.NewList(transform.NewTranslation(7, 9)),
	}
	if err := client.PutTileSpec(ctx, "montage", ts); err != nil {
		t.Fatalf("PutTileSpec() error = %v", err)
	}

	got, err := client.GetTileSpec(ctx, "montage", "tile.0.0")
	if err != nil {
		t.Fatalf("GetTileSpec() error = %v", err)
	}
	world, err := got.LocalToWorld([]transform.Point{{X: 0, Y: 0}})
	if err != nil {
		t.Fatalf("LocalToWorld() error = %v", err)
	}
	if world[0].X != 7 || world[0].Y != 9 {
		t.Errorf("origin maps to (%v, %v), want (7, 9)", world[0].X, world[0].Y)
	}
}

func TestClientCachesResponses(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	lens := transform.NewTranslation(1, 2)
	lens.ID = "lens"
	if _, err := st.PutTransform(ctx, "montage", lens); err != nil {
		t.Fatal(err)
	}

	var hits int
	inner := NewServer(st, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		inner.ServeHTTP(w, r)
	}))
	defer srv.Close()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client, err := NewClient(ClientOptions{BaseURL: srv.URL + "/render-ws/v1", Cache: fc})
	if err != nil {
		t.Fatal(err)
	}
	client.http = srv.Client()

	for range 2 {
		if _, err := client.GetTransform(ctx, "montage", "lens"); err != nil {
			t.Fatalf("GetTransform() error = %v", err)
		}
	}
	if hits != 1 {
		t.Errorf("upstream hits = %d, want 1 (second read served from cache)", hits)
	}

	// A put drops the stale entry, so the next read goes upstream again.
	lens.B0 = 5
	if _, err := client.PutTransform(ctx, "montage", lens); err != nil {
		t.Fatalf("PutTransform() error = %v", err)
	}
	got, err := client.GetTransform(ctx, "montage", "lens")
	if err != nil {
		t.Fatalf("GetTransform() error = %v", err)
	}
	if a := got.(*transform.Affine); a.B0 != 5 {
		t.Errorf("B0 = %v, want fresh value 5", a.B0)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "boom", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type":"leaf","className":"mpicbg.trakem2.transform.TranslationModel2D","dataString":"1 2"}`)
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	client.http = srv.Client()

	got, err := client.GetTransform(context.Background(), "montage", "t0")
	if err != nil {
		t.Fatalf("GetTransform() error = %v, want success after retry", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if a := got.(*transform.Affine); a.B0 != 1 || a.B1 != 2 {
		t.Errorf("spec = %+v", a)
	}
}

func TestClientDoesNotRetryNotFound(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	client.http = srv.Client()

	_, err = client.GetTransform(context.Background(), "montage", "t0")
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Fatalf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeNotFound)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (404 is terminal)", calls)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantCode  errors.Code
		retryable bool
	}{
		{"OK", http.StatusOK, "", false},
		{"Created", http.StatusCreated, "", false},
		{"NotFound", http.StatusNotFound, errors.ErrCodeNotFound, false},
		{"ServerError", http.StatusServiceUnavailable, errors.ErrCodeNetwork, true},
		{"Teapot", http.StatusTeapot, errors.ErrCodeNetwork, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStatus(tt.code, "spec")
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("checkStatus(%d) = %v, want nil", tt.code, err)
				}
				return
			}
			if errors.GetCode(err) != tt.wantCode {
				t.Errorf("code = %v, want %v", errors.GetCode(err), tt.wantCode)
			}
			var re *httputil.RetryableError
			if got := stderrors.As(err, &re); got != tt.retryable {
				t.Errorf("retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestServerErrorResponses(t *testing.T) {
	srv := httptest.NewServer(NewServer(store.NewMemStore(), nil))
	defer srv.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"MissingTransform", http.MethodGet, "/render-ws/v1/stack/montage/transform/ghost", "", http.StatusNotFound},
		{"BadStackName", http.MethodGet, "/render-ws/v1/stack/.hidden/transforms", "", http.StatusBadRequest},
		{"GarbageSpec", http.MethodPut, "/render-ws/v1/stack/montage/transform", "{", http.StatusBadRequest},
		{"UnknownSpecType", http.MethodPut, "/render-ws/v1/stack/montage/transform", `{"type":"warp"}`, http.StatusBadRequest},
		{"MissingTile", http.MethodGet, "/render-ws/v1/stack/montage/tile/ghost", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, body)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var er errorResponse
			if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if er.Error == "" || er.Code == "" {
				t.Errorf("error body = %+v, want message and code", er)
			}
		})
	}
}

func TestServerStacksEmpty(t *testing.T) {
	srv := httptest.NewServer(NewServer(store.NewMemStore(), nil))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/render-ws/v1/stacks")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}
