package router

import (
	"context"
	"testing"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/config"
	"github.com/lfnovo/content-core/internal/platform/logger"
	"github.com/lfnovo/content-core/internal/registry"
)

type scriptedProcessor struct {
	name      string
	available bool
	result    ccore.ProcessorResult
	err       error
}

func (s *scriptedProcessor) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{Name: s.name}
}
func (s *scriptedProcessor) IsAvailable(ctx context.Context) bool { return s.available }
func (s *scriptedProcessor) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	return s.result, s.err
}

func newTestRegistry(t *testing.T, procs ...ccore.Processor) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, p := range procs {
		if err := reg.Register(p); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return reg
}

func baseRouterConfig() *config.Config {
	cfg := config.NewBuilder().WithKnownEngines(nil).Build()
	return cfg
}

func TestRouterFirstEngineSucceeds(t *testing.T) {
	p1 := &scriptedProcessor{name: "first", available: true, result: ccore.ProcessorResult{Content: "hello"}}
	p2 := &scriptedProcessor{name: "second", available: true, result: ccore.ProcessorResult{Content: "should not run"}}
	reg := newTestRegistry(t, p1, p2)
	r := New(reg, logger.Nop())

	res, engine, err := r.Run(context.Background(), []string{"first", "second"}, baseRouterConfig(), ccore.Source{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine != "first" || res.Content != "hello" {
		t.Fatalf("expected first engine to win, got engine=%q content=%q", engine, res.Content)
	}
	if res.Metadata["extraction_engine"] != "first" {
		t.Fatalf("expected engine stamp, got %v", res.Metadata)
	}
}

func TestRouterFallsBackOnFailure(t *testing.T) {
	p1 := &scriptedProcessor{name: "broken", available: true, err: ccerr.New(ccerr.NetworkError, "boom")}
	p2 := &scriptedProcessor{name: "backup", available: true, result: ccore.ProcessorResult{Content: "recovered"}}
	reg := newTestRegistry(t, p1, p2)
	r := New(reg, logger.Nop())

	res, engine, err := r.Run(context.Background(), []string{"broken", "backup"}, baseRouterConfig(), ccore.Source{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine != "backup" || res.Content != "recovered" {
		t.Fatalf("expected fallback to backup, got engine=%q content=%q", engine, res.Content)
	}
}

func TestRouterUnavailableEngineSkipped(t *testing.T) {
	p1 := &scriptedProcessor{name: "down", available: false}
	p2 := &scriptedProcessor{name: "up", available: true, result: ccore.ProcessorResult{Content: "ok"}}
	reg := newTestRegistry(t, p1, p2)
	r := New(reg, logger.Nop())

	res, engine, err := r.Run(context.Background(), []string{"down", "up"}, baseRouterConfig(), ccore.Source{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine != "up" || res.Content != "ok" {
		t.Fatalf("expected unavailable engine skipped, got engine=%q", engine)
	}
}

func TestRouterAllEnginesFailedError(t *testing.T) {
	p1 := &scriptedProcessor{name: "a", available: true, err: ccerr.New(ccerr.NetworkError, "down")}
	p2 := &scriptedProcessor{name: "b", available: true, err: ccerr.New(ccerr.ParseError, "bad")}
	reg := newTestRegistry(t, p1, p2)
	r := New(reg, logger.Nop())

	_, _, err := r.Run(context.Background(), []string{"a", "b"}, baseRouterConfig(), ccore.Source{})
	if err == nil {
		t.Fatalf("expected AllEnginesFailedError")
	}
	allFailed, ok := err.(*ccerr.AllEnginesFailedError)
	if !ok {
		t.Fatalf("expected *ccerr.AllEnginesFailedError, got %T", err)
	}
	if len(allFailed.Attempts) != 2 {
		t.Fatalf("expected 2 recorded attempts, got %d", len(allFailed.Attempts))
	}
}

func TestRouterFatalErrorStopsImmediately(t *testing.T) {
	p1 := &scriptedProcessor{name: "fatal", available: true, err: ccerr.New(ccerr.AuthError, "unauthorized")}
	p2 := &scriptedProcessor{name: "never-reached", available: true, result: ccore.ProcessorResult{Content: "unreachable"}}
	reg := newTestRegistry(t, p1, p2)
	r := New(reg, logger.Nop())

	cfg := baseRouterConfig()
	cfg.Fallback.FatalErrors[string(ccerr.AuthError)] = true

	_, _, err := r.Run(context.Background(), []string{"fatal", "never-reached"}, cfg, ccore.Source{})
	if err == nil {
		t.Fatalf("expected fatal error to stop the chain")
	}
	allFailed, ok := err.(*ccerr.AllEnginesFailedError)
	if !ok || len(allFailed.Attempts) != 1 {
		t.Fatalf("expected exactly one attempt recorded before stopping, got %v", err)
	}
}

func TestRouterOnErrorFailStopsAtFirstFailure(t *testing.T) {
	p1 := &scriptedProcessor{name: "a", available: true, err: ccerr.New(ccerr.NetworkError, "down")}
	p2 := &scriptedProcessor{name: "b", available: true, result: ccore.ProcessorResult{Content: "never"}}
	reg := newTestRegistry(t, p1, p2)
	r := New(reg, logger.Nop())

	cfg := baseRouterConfig()
	cfg.Fallback.OnError = config.OnErrorFail

	_, _, err := r.Run(context.Background(), []string{"a", "b"}, cfg, ccore.Source{})
	if err == nil {
		t.Fatalf("expected on_error=fail to stop at first failure")
	}
}

func TestRouterMaxAttemptsLimitsChainLength(t *testing.T) {
	p1 := &scriptedProcessor{name: "a", available: true, err: ccerr.New(ccerr.NetworkError, "down")}
	p2 := &scriptedProcessor{name: "b", available: true, err: ccerr.New(ccerr.NetworkError, "down")}
	p3 := &scriptedProcessor{name: "c", available: true, result: ccore.ProcessorResult{Content: "never reached"}}
	reg := newTestRegistry(t, p1, p2, p3)
	r := New(reg, logger.Nop())

	cfg := baseRouterConfig()
	cfg.Fallback.MaxAttempts = 2

	_, _, err := r.Run(context.Background(), []string{"a", "b", "c"}, cfg, ccore.Source{})
	if err == nil {
		t.Fatalf("expected failure after exhausting max attempts")
	}
	allFailed, ok := err.(*ccerr.AllEnginesFailedError)
	if !ok || len(allFailed.Attempts) != 2 {
		t.Fatalf("expected exactly 2 attempts recorded, got %v", err)
	}
}

func TestRouterOptionsMergeSourceWinsOverConfig(t *testing.T) {
	var seenOptions map[string]any
	capture := &capturingProcessor{name: "cap", available: true, onExtract: func(opts map[string]any) {
		seenOptions = opts
	}}
	reg := newTestRegistry(t, capture)
	r := New(reg, logger.Nop())

	cfg := baseRouterConfig()
	cfg.EngineOptions["cap"] = map[string]any{"a": "config", "b": "config"}
	src := ccore.Source{Options: map[string]map[string]any{"cap": {"a": "source"}}}

	_, _, err := r.Run(context.Background(), []string{"cap"}, cfg, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if seenOptions["a"] != "source" {
		t.Fatalf("expected source override to win, got %v", seenOptions["a"])
	}
	if seenOptions["b"] != "config" {
		t.Fatalf("expected config default preserved, got %v", seenOptions["b"])
	}
}

type capturingProcessor struct {
	name      string
	available bool
	onExtract func(options map[string]any)
}

func (c *capturingProcessor) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{Name: c.name}
}
func (c *capturingProcessor) IsAvailable(ctx context.Context) bool { return c.available }
func (c *capturingProcessor) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	c.onExtract(options)
	return ccore.ProcessorResult{Content: "done"}, nil
}
