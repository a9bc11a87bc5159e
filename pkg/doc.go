// Package pkg provides the core libraries for Tilewarp transform handling.
//
// # Overview
//
// Tilewarp models the 2-D coordinate transforms that align overlapping
// image tiles into seamless montages. The pkg directory is organized into
// four main areas:
//
//  1. [transform] - Domain logic (transform models, fitting, composition)
//  2. [specio] / [tilespec] - Interchange formats (spec JSON, tile specs)
//  3. [store] / [renderws] / [cache] - Persistence and service access
//  4. [viz] - Spec tree visualization
//
// # Architecture
//
// The typical data flow through Tilewarp:
//
//	Point correspondences (matched features between tiles)
//	         ↓
//	    [transform] package (fit a model, compose chains)
//	         ↓
//	    [specio] package (interchange JSON)
//	         ↓
//	    [store] / [renderws] (stacks in MongoDB or a render web service)
//
// # Quick Start
//
// Fit a transform and push points through it:
//
//	import (
//	    "github.com/matzehuels/tilewarp/pkg/specio"
//	    "github.com/matzehuels/tilewarp/pkg/transform"
//	)
//
//	// 1. Estimate a model from matched points
//	a, _ := transform.FitAffine(src, dst)
//
//	// 2. Apply it
//	world, _ := a.Apply(local)
//
//	// 3. Serialize for downstream tools
//	_ = specio.Export(a, "align.json", specio.Options{})
//
// # Main Packages
//
// ## Core Domain Logic
//
// [transform] - The transform vocabulary: affine-family leaves
// (translation, rigid, similarity, affine), polynomials, nested lists,
// interpolated pairs, and references. Least-squares fitting backed by
// gonum, chain composition, and exact or sampled collapsing.
//
// [tilespec] - Tile specs: one image tile's dimensions, layer, world
// bounds, and the transform list that places it.
//
// ## Interchange
//
// [specio] - Reading and writing transform specs as interchange JSON,
// single or chained, from files, streams, and temp files.
//
// ## Persistence and Services
//
// [store] - The stack-scoped spec store interface with MongoDB and
// in-memory implementations, plus reference resolution against a store.
//
// [renderws] - An HTTP client for render web services and a server that
// exposes any [store.Store] under the same routes. The client caches
// responses and retries transient failures.
//
// [cache] - Response caching behind one interface: file-based for the
// CLI, Redis for shared deployments, and a null cache for tests.
//
// ## Supporting Packages
//
// [config] - TOML configuration with environment overrides for service
// URLs, Mongo, Redis, and cache placement.
//
// [errors] - Coded errors that map cleanly onto exit paths and HTTP
// status codes, plus input validation helpers.
//
// [viz] - Graphviz rendering of spec trees (DOT, SVG, PNG).
//
// [httputil] - Retry policies for service calls.
//
// [observability] - Optional instrumentation hooks for estimation,
// store, cache, and HTTP events.
//
// [buildinfo] - Version metadata injected at build time.
//
// # Common Workflows
//
// Collapse a transform chain into one model:
//
//	chain, _ := specio.ImportChain("stage-then-lens.json")
//	leaf, _ := transform.Collapse(chain, samplePts, 2)
//
// Resolve shared references from a stack:
//
//	t, _ := st.GetTransform(ctx, "montage", "tile-0-0")
//	t, _ = store.Resolve(ctx, st, "montage", t)
//
// Serve a store over HTTP:
//
//	srv := renderws.NewServer(store.NewMemStore(), logger)
//	http.ListenAndServe(":8080", srv)
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/transform/...    # Specific package
//	go test -run Example           # Examples only
//
// [transform]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/transform
// [specio]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/specio
// [tilespec]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/tilespec
// [store]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/store
// [renderws]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/renderws
// [cache]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/errors
// [viz]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/viz
// [httputil]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/tilewarp/pkg/buildinfo
package pkg
