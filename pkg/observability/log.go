package observability

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// LogHTTPHooks writes HTTP events to a logger at debug level.
type LogHTTPHooks struct {
	logger *log.Logger
}

// NewLogHTTPHooks creates HTTP hooks that log through logger.
func NewLogHTTPHooks(logger *log.Logger) *LogHTTPHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHTTPHooks{logger: logger}
}

func (h *LogHTTPHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHTTPHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path,
		"status", status, "duration", d.Round(time.Millisecond))
}

func (h *LogHTTPHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "error", err)
}

// CacheStats counts cache events. It is safe for concurrent use.
type CacheStats struct {
	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

func (s *CacheStats) OnCacheHit(context.Context, string)      { s.hits.Add(1) }
func (s *CacheStats) OnCacheMiss(context.Context, string)     { s.misses.Add(1) }
func (s *CacheStats) OnCacheSet(context.Context, string, int) { s.sets.Add(1) }

// Hits returns the number of recorded hits.
func (s *CacheStats) Hits() int64 { return s.hits.Load() }

// Misses returns the number of recorded misses.
func (s *CacheStats) Misses() int64 { return s.misses.Load() }

// Sets returns the number of recorded writes.
func (s *CacheStats) Sets() int64 { return s.sets.Load() }

// FanOut forwards pipeline events to every non-nil member in order.
type FanOut []PipelineHooks

func (f FanOut) OnRunStart(ctx context.Context, total int) {
	for _, h := range f {
		if h != nil {
			h.OnRunStart(ctx, total)
		}
	}
}

func (f FanOut) OnItemStart(ctx context.Context, item string) {
	for _, h := range f {
		if h != nil {
			h.OnItemStart(ctx, item)
		}
	}
}

func (f FanOut) OnStageComplete(ctx context.Context, item, stage string, d time.Duration, err error) {
	for _, h := range f {
		if h != nil {
			h.OnStageComplete(ctx, item, stage, d, err)
		}
	}
}

func (f FanOut) OnItemComplete(ctx context.Context, item string, d time.Duration, err error) {
	for _, h := range f {
		if h != nil {
			h.OnItemComplete(ctx, item, d, err)
		}
	}
}

func (f FanOut) OnRunComplete(ctx context.Context, d time.Duration, err error) {
	for _, h := range f {
		if h != nil {
			h.OnRunComplete(ctx, d, err)
		}
	}
}
