// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about panel lifecycle operations and cache
// activity.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach avoids import cycles (hooks are registered by main, not by
// libraries) and keeps the core library free of observability frameworks.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPanelHooks(&myPanelHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Panel().OnParseStart(ctx, configID)
//	// ... parse ...
//	observability.Panel().OnParseComplete(ctx, configID, nodeCount, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PanelHooks receives events from the panel lifecycle.
type PanelHooks interface {
	// Discovery events
	OnScanComplete(ctx context.Context, configCount int, duration time.Duration)

	// Parse events
	OnParseStart(ctx context.Context, configID string)
	OnParseComplete(ctx context.Context, configID string, nodeCount int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, configID string, nodeCount int)
	OnLayoutComplete(ctx context.Context, configID string, duration time.Duration, err error)

	// Reconcile/save events
	OnReconcileComplete(ctx context.Context, configID string, changeCount int, err error)
	OnSaveComplete(ctx context.Context, configID string, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// noopPanelHooks is the default no-op implementation.
type noopPanelHooks struct{}

func (noopPanelHooks) OnScanComplete(context.Context, int, time.Duration) {}
func (noopPanelHooks) OnParseStart(context.Context, string) {}
func (noopPanelHooks) OnParseComplete(context.Context, string, int, time.Duration, error) {}
func (noopPanelHooks) OnLayoutStart(context.Context, string, int) {}
func (noopPanelHooks) OnLayoutComplete(context.Context, string, time.Duration, error) {}
func (noopPanelHooks) OnReconcileComplete(context.Context, string, int, error) {}
func (noopPanelHooks) OnSaveComplete(context.Context, string, time.Duration, error) {}

// noopCacheHooks is the default no-op implementation.
type noopCacheHooks struct{}

func (noopCacheHooks) OnCacheHit(context.Context, string) {}
func (noopCacheHooks) OnCacheMiss(context.Context, string) {}
func (noopCacheHooks) OnCacheSet(context.Context, string, int) {}

var (
	mu         sync.RWMutex
	panelHooks PanelHooks = noopPanelHooks{}
	cacheHooks CacheHooks = noopCacheHooks{}
)

// SetPanelHooks registers panel lifecycle hooks. Pass nil to restore the
// no-op default. Call at startup, before panels are created.
func SetPanelHooks(h PanelHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		panelHooks = noopPanelHooks{}
		return
	}
	panelHooks = h
}

// SetCacheHooks registers cache hooks. Pass nil to restore the no-op default.
func SetCacheHooks(h CacheHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		cacheHooks = noopCacheHooks{}
		return
	}
	cacheHooks = h
}

// Panel returns the registered panel hooks.
func Panel() PanelHooks {
	mu.RLock()
	defer mu.RUnlock()
	return panelHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	mu.RLock()
	defer mu.RUnlock()
	return cacheHooks
}
