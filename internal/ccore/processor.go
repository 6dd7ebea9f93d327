package ccore

import "context"

// Processor is the interface every extraction engine implements. Per
// spec §3 "Processor", instances are stateless after construction: they
// own no mutable state between calls, only the handles (HTTP clients,
// provider SDKs) needed to do their work.
type Processor interface {
	// Capabilities returns this processor's static declaration. Called
	// once at registration time and safe to call repeatedly afterward.
	Capabilities() ProcessorCapabilities

	// IsAvailable reports whether this processor's required external
	// dependencies (credentials, local binaries, model runtimes) are
	// present. Implementations typically memoize this after the first
	// check (spec §4.1 "Availability check").
	IsAvailable(ctx context.Context) bool

	// Extract runs the engine against source. ctx carries the router's
	// overall timeout budget and must be honored at every suspension
	// point (network call, file I/O, model inference).
	Extract(ctx context.Context, source Source, options map[string]any) (ProcessorResult, error)
}
