package registry

import (
	"context"
	"fmt"

	"newsfeed-engine/internal/cache"
	"newsfeed-engine/internal/domain/entity"
	"newsfeed-engine/internal/httpx"
	"newsfeed-engine/internal/sourcecore"
	"newsfeed-engine/internal/strategy"
)

// Registry holds one Wrapper per loaded source, keyed by source_id.
type Registry struct {
	wrappers map[string]*sourcecore.Wrapper
	order    []string
}

// Deps bundles the process-wide collaborators a strategy factory needs.
type Deps struct {
	Client      *httpx.Client
	Cache       *cache.Cache
	SessionPool strategy.SessionPool // may be nil if no source uses BROWSER_AUTOMATED
}

// Build materializes a Registry from validated descriptors, dispatching each
// to its Kind's strategy via an explicit switch rather than a reflective or
// import-order-dependent factory map. A descriptor naming an
// unrecognized kind never reaches here: entity.SourceDescriptor.Validate
// already rejects it at load time.
func Build(descriptors []*entity.SourceDescriptor, deps Deps) (*Registry, []string, error) {
	reg := &Registry{wrappers: make(map[string]*sourcecore.Wrapper, len(descriptors))}
	var warnings []string

	for _, d := range descriptors {
		strat, err := newStrategy(d, deps)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("source %s: %v (skipped)", d.SourceID, err))
			continue
		}

		wrapper := sourcecore.New(d, strat, deps.Cache)
		reg.wrappers[d.SourceID] = wrapper
		reg.order = append(reg.order, d.SourceID)
	}

	if len(reg.wrappers) == 0 {
		return reg, warnings, fmt.Errorf("registry: no sources could be loaded")
	}
	return reg, warnings, nil
}

func newStrategy(d *entity.SourceDescriptor, deps Deps) (sourcecore.Strategy, error) {
	switch d.Kind {
	case entity.SourceKindJSONAPI:
		return strategy.NewJSONAPIStrategy(d, deps.Client), nil

	case entity.SourceKindRSS:
		return strategy.NewRSSStrategy(d, deps.Client, d.URL), nil

	case entity.SourceKindWebScrape, entity.SourceKindCustomSelectors:
		return strategy.NewWebScrapeStrategy(d, deps.Client, d.URL), nil

	case entity.SourceKindBrowserAutomated:
		if deps.SessionPool == nil {
			return nil, fmt.Errorf("no browser session pool configured")
		}
		var fallback *strategy.WebScrapeStrategy
		if d.Browser.HTTPFallbackAllowed {
			fallback = strategy.NewWebScrapeStrategy(d, deps.Client, d.URL)
		}
		return strategy.NewBrowserStrategy(d, deps.SessionPool, d.URL, fallback), nil

	default:
		return nil, fmt.Errorf("unrecognized source kind %q", d.Kind)
	}
}

// New constructs an empty Registry; wrappers are added with Register.
func New() *Registry {
	return &Registry{wrappers: make(map[string]*sourcecore.Wrapper)}
}

// Register adds a prebuilt wrapper, replacing any wrapper already holding the
// same source_id. Reload paths and tests that assemble wrappers directly use
// this instead of Build.
func (r *Registry) Register(w *sourcecore.Wrapper) {
	if _, exists := r.wrappers[w.SourceID()]; !exists {
		r.order = append(r.order, w.SourceID())
	}
	r.wrappers[w.SourceID()] = w
}

// Get returns the wrapper for one source.
func (r *Registry) Get(sourceID string) (*sourcecore.Wrapper, bool) {
	w, ok := r.wrappers[sourceID]
	return w, ok
}

// All returns every wrapper in load order.
func (r *Registry) All() []*sourcecore.Wrapper {
	out := make([]*sourcecore.Wrapper, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.wrappers[id])
	}
	return out
}

// Len reports how many sources are registered.
func (r *Registry) Len() int { return len(r.wrappers) }

// HydrateAll seeds every wrapper's cache from the two-tier cache layer. Call
// once at startup before the scheduler begins ticking.
func (r *Registry) HydrateAll(ctx context.Context) {
	for _, w := range r.All() {
		w.Hydrate(ctx)
	}
}

// OrphanedSessions sums every wrapper's orphaned browser session count,
// satisfying orchestrator.SessionCleaner.
func (r *Registry) OrphanedSessions() int64 {
	var total int64
	for _, w := range r.All() {
		total += w.OrphanedSessions()
	}
	return total
}
