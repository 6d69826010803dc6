package observability

import (
	"context"
	"testing"
	"time"
)

type recordingPanelHooks struct {
	noopPanelHooks
	parses int
}

func (r *recordingPanelHooks) OnParseComplete(context.Context, string, int, time.Duration, error) {
	r.parses++
}

func TestSetPanelHooks(t *testing.T) {
	rec := &recordingPanelHooks{}
	SetPanelHooks(rec)
	defer SetPanelHooks(nil)

	Panel().OnParseComplete(context.Background(), "order-flow", 5, time.Millisecond, nil)
	Panel().OnParseComplete(context.Background(), "order-flow", 5, time.Millisecond, nil)

	if rec.parses != 2 {
		t.Errorf("recorded %d parse events, want 2", rec.parses)
	}
}

func TestNilRestoresNoop(t *testing.T) {
	SetPanelHooks(&recordingPanelHooks{})
	SetPanelHooks(nil)

	// Must not panic and must be the no-op again.
	Panel().OnLayoutStart(context.Background(), "x", 10)
	if _, ok := Panel().(noopPanelHooks); !ok {
		t.Error("SetPanelHooks(nil) should restore the no-op implementation")
	}
}

func TestCacheHooksDefault(t *testing.T) {
	// Defaults never panic.
	Cache().OnCacheHit(context.Background(), "layout")
	Cache().OnCacheMiss(context.Background(), "layout")
	Cache().OnCacheSet(context.Background(), "layout", 128)
}
