// Package router implements the Extraction Router with Fallback
// Orchestration from spec §4.3: it walks a resolved engine chain under a
// single overall timeout budget, classifies each failure, and applies
// the configured fallback policy to decide whether to continue, warn,
// or fail outright.
package router

import (
	"context"
	"fmt"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/config"
	"github.com/lfnovo/content-core/internal/platform/ctxutil"
	"github.com/lfnovo/content-core/internal/platform/logger"
	"github.com/lfnovo/content-core/internal/platform/tracing"
	"github.com/lfnovo/content-core/internal/registry"
)

// Router dispatches a resolved engine chain against a registry under a
// fallback policy.
type Router struct {
	reg *registry.Registry
	log *logger.Logger
}

func New(reg *registry.Registry, log *logger.Logger) *Router {
	if log == nil {
		log = logger.Nop()
	}
	return &Router{reg: reg, log: log}
}

// Run attempts each engine in chain, in order, up to cfg.Fallback.MaxAttempts
// tries, inside the overall timeout budget (source.TimeoutSeconds if set,
// else cfg.TimeoutSeconds, else unbounded). Returns the first successful
// ProcessorResult (stamped with extraction_engine) plus the engine name
// that produced it, or an *ccerr.AllEnginesFailedError/other classified
// error when every attempt is exhausted.
func (r *Router) Run(ctx context.Context, chain []string, cfg *config.Config, source ccore.Source) (ccore.ProcessorResult, string, error) {
	budget := source.TimeoutSeconds
	if budget <= 0 {
		budget = cfg.TimeoutSeconds
	}
	ctx, cancel := ctxutil.WithBudget(ctx, budget)
	defer cancel()

	ctx, end := tracing.StartSpan(ctx, "router.run", "engine_count", fmt.Sprint(len(chain)))
	defer func() { end(nil) }()

	policy := cfg.Fallback
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 || maxAttempts > len(chain) {
		maxAttempts = len(chain)
	}
	if !policy.Enabled && maxAttempts > 1 {
		maxAttempts = 1
	}

	var attempts []ccerr.Attempt
	var warnings []string

	for i, name := range chain {
		if i >= maxAttempts {
			break
		}
		if ctxutil.Done(ctx) {
			attempts = append(attempts, ccerr.Attempt{Engine: name, Kind: ccerr.Cancelled, Message: "overall timeout budget exhausted before this attempt"})
			break
		}

		proc, ok := r.reg.GetByName(name)
		if !ok {
			attempts = append(attempts, ccerr.Attempt{Engine: name, Kind: ccerr.EngineNotFound, Message: "not registered"})
			if policy.OnError == config.OnErrorFail {
				return ccore.ProcessorResult{}, "", ccerr.Newf(ccerr.EngineNotFound, "engine %q not registered", name).WithEngine(name)
			}
			continue
		}
		if !proc.IsAvailable(ctx) {
			attempts = append(attempts, ccerr.Attempt{Engine: name, Kind: ccerr.EngineUnavailable, Message: "dependencies not ready"})
			if policy.OnError == config.OnErrorFail {
				return ccore.ProcessorResult{}, "", ccerr.New(ccerr.EngineUnavailable, "dependencies not ready").WithEngine(name)
			}
			continue
		}

		opts := mergeOptions(cfg.EngineOptions[name], source.Options[name])

		attemptCtx, endAttempt := tracing.StartSpan(ctx, "router.attempt", "engine", name)
		result, err := proc.Extract(attemptCtx, source, opts)
		endAttempt(err)

		if err == nil {
			result.EnsureEngineStamp(name)
			result.Warnings = append(warnings, result.Warnings...)
			r.log.Debug("extraction succeeded", "engine", name, "attempt", i+1)
			return result, name, nil
		}

		kind := ccerr.KindOf(err)
		attempts = append(attempts, ccerr.Attempt{Engine: name, Kind: kind, Message: err.Error()})
		r.log.Warn("engine attempt failed", "engine", name, "kind", string(kind), "error", err.Error())

		if policy.FatalErrors[string(kind)] || !policy.Enabled {
			return ccore.ProcessorResult{}, "", &ccerr.AllEnginesFailedError{Attempts: attempts}
		}
		switch policy.OnError {
		case config.OnErrorFail:
			return ccore.ProcessorResult{}, "", &ccerr.AllEnginesFailedError{Attempts: attempts}
		case config.OnErrorWarn:
			warnings = append(warnings, fmt.Sprintf("engine %q failed (%s): %s", name, kind, err.Error()))
		case config.OnErrorNext:
			// silent, try the next engine
		}
	}

	return ccore.ProcessorResult{}, "", &ccerr.AllEnginesFailedError{Attempts: attempts}
}

// mergeOptions layers source-level per-call overrides over config-level
// defaults, source winning on key conflicts (spec §4.5 "Options").
func mergeOptions(base, override map[string]any) map[string]any {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
