// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about transform estimation, store operations, cache
// operations, and render service calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEstimateHooks(&myEstimateHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Estimate().OnFitStart(ctx, className, pairs)
//	// ... fit the model ...
//	observability.Estimate().OnFitComplete(ctx, className, pairs, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Estimate Hooks
// =============================================================================

// EstimateHooks receives events from transform fitting and chain collapsing.
type EstimateHooks interface {
	// Fit events
	OnFitStart(ctx context.Context, className string, pairs int)
	OnFitComplete(ctx context.Context, className string, pairs int, duration time.Duration, err error)

	// Collapse events
	OnCollapseStart(ctx context.Context, chainLen, points int)
	OnCollapseComplete(ctx context.Context, className string, duration time.Duration, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from transform store operations.
type StoreHooks interface {
	// OnStoreGet records a transform lookup.
	OnStoreGet(ctx context.Context, stack, id string, found bool)

	// OnStorePut records a transform write.
	OnStorePut(ctx context.Context, stack, id string)

	// OnResolve records a reference resolution pass.
	OnResolve(ctx context.Context, stack string, refs int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEstimateHooks is a no-op implementation of EstimateHooks.
type NoopEstimateHooks struct{}

func (NoopEstimateHooks) OnFitStart(context.Context, string, int) {}
func (NoopEstimateHooks) OnFitComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopEstimateHooks) OnCollapseStart(context.Context, int, int)                         {}
func (NoopEstimateHooks) OnCollapseComplete(context.Context, string, time.Duration, error) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreGet(context.Context, string, string, bool)                   {}
func (NoopStoreHooks) OnStorePut(context.Context, string, string)                         {}
func (NoopStoreHooks) OnResolve(context.Context, string, int, time.Duration, error)       {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	estimateHooks EstimateHooks = NoopEstimateHooks{}
	storeHooks    StoreHooks    = NoopStoreHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetEstimateHooks registers custom estimation hooks.
// This should be called once at application startup before any fit operations.
func SetEstimateHooks(h EstimateHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		estimateHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup before any store operations.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Estimate returns the registered estimation hooks.
func Estimate() EstimateHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return estimateHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	estimateHooks = NoopEstimateHooks{}
	storeHooks = NoopStoreHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
