// Package registry implements the ProcessorRegistry from spec §4.1: a
// process-wide catalog of every extraction engine, populated once at
// startup and then sealed. Every lookup takes the read side of a
// sync.RWMutex; lookups are not lock-free.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lfnovo/content-core/internal/ccore"
)

// Registry is a process-wide immutable catalog of registered processors.
// Register must only be called before the first query; Seal freezes the
// registry so later Register calls fail fast instead of racing with
// concurrent readers (spec §4.1 "registration phase").
type Registry struct {
	mu        sync.RWMutex
	sealed    bool
	byName    map[string]entry
	order     []string // registration order, for stable tie-breaks
	available map[string]bool
	availOnce map[string]*sync.Once
}

type entry struct {
	proc ccore.Processor
	regN int
}

func New() *Registry {
	return &Registry{
		byName:    map[string]entry{},
		available: map[string]bool{},
		availOnce: map[string]*sync.Once{},
	}
}

// Register adds proc to the catalog. Fails if another processor with the
// same engine name is already registered, or if the registry has been
// sealed.
func (r *Registry) Register(proc ccore.Processor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := proc.Capabilities().Name
	if name == "" {
		return fmt.Errorf("registry: processor has empty name")
	}
	if r.sealed {
		return fmt.Errorf("registry: sealed; cannot register %q", name)
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("registry: processor %q already registered", name)
	}

	r.byName[name] = entry{proc: proc, regN: len(r.order)}
	r.order = append(r.order, name)
	r.availOnce[name] = &sync.Once{}
	return nil
}

// Seal freezes the registry against further registration. Calling Seal
// is optional but recommended once startup wiring is complete; it makes
// accidental late registration a hard error instead of silent data races.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// GetByName returns the processor registered under name, or (nil, false).
func (r *Registry) GetByName(name string) (ccore.Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return e.proc, true
}

// AvailableEngines returns the set of registered engine names whose
// IsAvailable() currently reports true.
func (r *Registry) AvailableEngines(ctx context.Context) map[string]bool {
	r.mu.RLock()
	names := make([]string, 0, len(r.order))
	names = append(names, r.order...)
	r.mu.RUnlock()

	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = r.isAvailable(ctx, n)
	}
	return out
}

// isAvailable memoizes each processor's IsAvailable() result per process
// lifetime (spec §4.1 "checked lazily and memoized").
func (r *Registry) isAvailable(ctx context.Context, name string) bool {
	r.mu.RLock()
	e, ok := r.byName[name]
	once := r.availOnce[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	once.Do(func() {
		avail := e.proc.IsAvailable(ctx)
		r.mu.Lock()
		r.available[name] = avail
		r.mu.Unlock()
	})
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available[name]
}

// candidate pairs a matched processor with the data needed to sort it.
type candidate struct {
	name      string
	proc      ccore.Processor
	priority  int
	regN      int
	available bool
}

func (r *Registry) sortCandidates(ctx context.Context, cands []candidate) []ccore.Processor {
	for i := range cands {
		cands[i].available = r.isAvailable(ctx, cands[i].name)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].available != cands[j].available {
			return cands[i].available // available first
		}
		if cands[i].priority != cands[j].priority {
			return cands[i].priority > cands[j].priority // priority desc
		}
		return cands[i].regN < cands[j].regN // registration order
	})
	out := make([]ccore.Processor, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.proc)
	}
	return out
}

// FindByMime returns every processor covering mime, exact matches first
// (each still ordered by availability/priority/registration among
// themselves), followed by wildcard matches similarly ordered.
func (r *Registry) FindByMime(ctx context.Context, mime ccore.MimeType) []ccore.Processor {
	r.mu.RLock()
	var exact, wildcard []candidate
	for name, e := range r.byName {
		caps := e.proc.Capabilities()
		if caps.HandlesMimeExact(mime) {
			exact = append(exact, candidate{name: name, proc: e.proc, priority: caps.Priority, regN: e.regN})
		} else if caps.HandlesMime(mime) {
			wildcard = append(wildcard, candidate{name: name, proc: e.proc, priority: caps.Priority, regN: e.regN})
		}
	}
	r.mu.RUnlock()

	out := r.sortCandidates(ctx, exact)
	out = append(out, r.sortCandidates(ctx, wildcard)...)
	return out
}

// FindByCategory returns every processor declaring category, ordered by
// availability/priority/registration order.
func (r *Registry) FindByCategory(ctx context.Context, category ccore.Category) []ccore.Processor {
	r.mu.RLock()
	var cands []candidate
	for name, e := range r.byName {
		caps := e.proc.Capabilities()
		if caps.Category == category {
			cands = append(cands, candidate{name: name, proc: e.proc, priority: caps.Priority, regN: e.regN})
		}
	}
	r.mu.RUnlock()
	return r.sortCandidates(ctx, cands)
}

// FindByExtension returns every processor recognizing ext as a secondary
// hint, ordered the same way.
func (r *Registry) FindByExtension(ctx context.Context, ext string) []ccore.Processor {
	r.mu.RLock()
	var cands []candidate
	for name, e := range r.byName {
		caps := e.proc.Capabilities()
		if caps.HandlesExtension(ext) {
			cands = append(cands, candidate{name: name, proc: e.proc, priority: caps.Priority, regN: e.regN})
		}
	}
	r.mu.RUnlock()
	return r.sortCandidates(ctx, cands)
}

// Names returns every registered engine name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
