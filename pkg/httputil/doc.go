// Package httputil provides HTTP utilities for the render service client.
//
// # Retry
//
// [Policy.Do] wraps HTTP requests with automatic retry for transient
// failures:
//
//   - Network errors
//   - 5xx server errors
//
// Only errors wrapped with [RetryableError] are retried; everything else
// fails immediately. The delay doubles after each failed attempt:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.fetchStacks(ctx)
//	})
//
// # Configuration
//
// [RetryWithBackoff] runs under [DefaultPolicy] (three attempts, one
// second initial delay). Callers with different latency budgets build
// their own [Policy].
package httputil
