// Package ccore is the module's public facade: Extract composes the
// sniffer, resolver, and router into the one call external packages
// need, analogous to the teacher's top-level
// ContentExtractionService.ExtractAndPersist but with no persistence
// step (spec §6 "Persisted state: None").
package ccore

import (
	"context"

	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/config"
	"github.com/lfnovo/content-core/internal/platform/logger"
	"github.com/lfnovo/content-core/internal/registry"
	"github.com/lfnovo/content-core/internal/resolver"
	"github.com/lfnovo/content-core/internal/router"
	"github.com/lfnovo/content-core/internal/sniff"
)

// Source, ExtractionResult, and MimeType are re-exported so callers
// never need to import internal/ccore directly.
type Source = ccore.Source
type ExtractionResult = ccore.ExtractionResult
type MimeType = ccore.MimeType

// Service owns the sealed registry and the set of its engine names, and
// builds a fresh config snapshot on every Extract call; it is the
// module's one entry point after registerall.Build wires every
// engine in.
type Service struct {
	registry     *registry.Registry
	knownEngines map[string]bool
	log          *logger.Logger
}

// NewService wraps an already-built, sealed registry. Construct reg via
// internal/registerall.Build.
func NewService(reg *registry.Registry, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	known := map[string]bool{}
	for _, n := range reg.Names() {
		known[n] = true
	}
	return &Service{registry: reg, knownEngines: known, log: log}
}

// Extract runs the full resolve-then-route pipeline for one Source. Per
// spec §4.8's Open Question resolution, the effective configuration is
// a fresh per-call snapshot read from the environment. Service has no
// config override hook, so every call re-reads the environment.
func (s *Service) Extract(ctx context.Context, source Source) (*ExtractionResult, error) {
	cfg := config.NewBuilder().WithKnownEngines(s.knownEngines).Build()

	_, mimeType, isYouTube := sniff.Classify(source)
	isURL := source.Kind() == "url"

	resolution, err := resolver.Resolve(ctx, s.registry, cfg, source, mimeType, isURL, isYouTube)
	if err != nil {
		return nil, err
	}

	rt := router.New(s.registry, s.log)
	result, engineUsed, err := rt.Run(ctx, resolution.Chain, cfg, source)
	if err != nil {
		return nil, err
	}

	warnings := append([]string{}, resolution.Warnings...)
	warnings = append(warnings, cfg.Warnings...)
	warnings = append(warnings, result.Warnings...)

	return &ExtractionResult{
		Content:    result.Content,
		EngineUsed: engineUsed,
		Metadata:   result.Metadata,
		Warnings:   warnings,
	}, nil
}
