package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnStageStart(ctx, "salto", "aggregate")
	p.OnStageComplete(ctx, "salto", "aggregate", time.Second, nil)
	p.OnStageComplete(ctx, "salto", "geometry", time.Second, errors.New("boom"))
	p.OnDepartmentComplete(ctx, "salto", "warned", 3, time.Second)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "geometry")
	c.OnCacheMiss(ctx, "geometry")
	c.OnCacheSet(ctx, "geometry", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset() should restore NoopCacheHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

func TestHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	h := &testPipelineHooks{}
	SetPipelineHooks(h)

	ctx := context.Background()
	Pipeline().OnStageStart(ctx, "rivera", "match")
	Pipeline().OnStageStart(ctx, "rivera", "classify")

	if got := h.started(); len(got) != 2 || got[0] != "rivera/match" || got[1] != "rivera/classify" {
		t.Errorf("started stages = %v", got)
	}
}

// Test implementations
type testPipelineHooks struct {
	NoopPipelineHooks
	mu     sync.Mutex
	stages []string
}

func (h *testPipelineHooks) OnStageStart(_ context.Context, department, stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages = append(h.stages, department+"/"+stage)
}

func (h *testPipelineHooks) started() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stages
}

type testCacheHooks struct{ NoopCacheHooks }
