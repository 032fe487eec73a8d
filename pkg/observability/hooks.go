// Package observability provides hooks for progress reporting, cache
// accounting, and HTTP tracing.
//
// Hooks are plain interfaces with no-op defaults. They are passed explicitly
// to the components that emit events (the pipeline, the upstream source, the
// HTTP client) instead of being registered globally, so two runs in the same
// process never observe each other.
//
// # Usage
//
//	hooks := observability.Hooks{
//	    Pipeline: progressView,
//	    HTTP:     observability.NewLogHTTPHooks(logger),
//	}.WithDefaults()
//
//	hooks.Pipeline.OnItemStart(ctx, "@visual-framework/vf-box")
package observability

import (
	"context"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the enrichment pipeline. Calls arrive
// from up to five goroutines at once; implementations must be safe for
// concurrent use.
type PipelineHooks interface {
	// OnRunStart is called once with the number of items about to run.
	OnRunStart(ctx context.Context, total int)

	// OnItemStart is called before the first stage of an item.
	OnItemStart(ctx context.Context, item string)

	// OnStageComplete is called after every stage of an item.
	OnStageComplete(ctx context.Context, item, stage string, duration time.Duration, err error)

	// OnItemComplete is called once per item, err being the stage failure if any.
	OnItemComplete(ctx context.Context, item string, duration time.Duration, err error)

	// OnRunComplete is called after every item has settled.
	OnRunComplete(ctx context.Context, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache lookups.
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

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnRunStart(context.Context, int)                                       {}
func (NoopPipelineHooks) OnItemStart(context.Context, string)                                   {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, string, time.Duration, error) {}
func (NoopPipelineHooks) OnItemComplete(context.Context, string, time.Duration, error)          {}
func (NoopPipelineHooks) OnRunComplete(context.Context, time.Duration, error)                   {}

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
// Hook Bundle
// =============================================================================

// Hooks bundles the three hook kinds handed to a run.
type Hooks struct {
	Pipeline PipelineHooks
	Cache    CacheHooks
	HTTP     HTTPHooks
}

// WithDefaults returns a copy of h with nil members replaced by no-ops.
func (h Hooks) WithDefaults() Hooks {
	if h.Pipeline == nil {
		h.Pipeline = NoopPipelineHooks{}
	}
	if h.Cache == nil {
		h.Cache = NoopCacheHooks{}
	}
	if h.HTTP == nil {
		h.HTTP = NoopHTTPHooks{}
	}
	return h
}
