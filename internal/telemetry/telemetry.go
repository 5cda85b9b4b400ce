// Package telemetry is the read-only cache-protection and scheduling
// observer. It never mutates scheduler or sourcecore
// state; it only reads the snapshots those packages already expose by
// value. The cache hit/miss counts, the empty/error/shrink protection
// counts and the unhealthy flag are mirrored into Prometheus via promauto;
// the other counters and the scheduling state are not.
package telemetry

import (
	"sort"

	"newsfeed-engine/internal/registry"
	"newsfeed-engine/internal/scheduler"
	"newsfeed-engine/internal/sourcecore"
)

const (
	detailEventLimit  = 20
	summaryEventLimit = 5

	// healthFlagThreshold is the number of recent protection events beyond
	// which a source is flagged unhealthy.
	healthFlagThreshold = 3
)

// SourceReport is one source's point-in-time telemetry.
type SourceReport struct {
	SourceID   string
	Cache      sourcecore.CacheMetrics
	Protection sourcecore.CacheProtectionStats
	Scheduling scheduler.StateSnapshot
	Unhealthy  bool
}

// GlobalRollup aggregates totals across every source.
type GlobalRollup struct {
	TotalHits              int64
	TotalMisses            int64
	HitRatio               float64
	TotalEmptyProtections  int64
	TotalErrorProtections  int64
	TotalShrinkProtections int64
	UnhealthySourceCount   int
}

// Observer aggregates live state from a Registry and Scheduler on demand.
type Observer struct {
	reg     *registry.Registry
	sched   *scheduler.Scheduler
	metrics *Metrics
}

// NewObserver constructs an Observer. metrics may be nil to skip Prometheus
// mirroring.
func NewObserver(reg *registry.Registry, sched *scheduler.Scheduler, metrics *Metrics) *Observer {
	return &Observer{reg: reg, sched: sched, metrics: metrics}
}

// SourceReports returns one report per registered source, sorted by
// source_id for stable output.
func (o *Observer) SourceReports() []SourceReport {
	reports := make([]SourceReport, 0, o.reg.Len())
	for _, w := range o.reg.All() {
		cacheMetrics, protection := w.Telemetry()
		schedState, _ := o.sched.Snapshot(w.SourceID())

		report := SourceReport{
			SourceID:   w.SourceID(),
			Cache:      cacheMetrics,
			Protection: protection,
			Scheduling: schedState,
			Unhealthy:  recentProtectionCount(protection) > healthFlagThreshold,
		}
		reports = append(reports, report)

		if o.metrics != nil {
			o.metrics.observe(report)
		}
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].SourceID < reports[j].SourceID })
	return reports
}

// recentProtectionCount counts protection events across the bounded ring,
// which already caps at 20 regardless of lifetime totals.
func recentProtectionCount(stats sourcecore.CacheProtectionStats) int {
	return len(stats.Events)
}

// Rollup computes the global aggregate over every source.
func (o *Observer) Rollup() GlobalRollup {
	reports := o.SourceReports()

	var rollup GlobalRollup
	for _, r := range reports {
		rollup.TotalHits += r.Cache.CacheHit
		rollup.TotalMisses += r.Cache.CacheMiss
		rollup.TotalEmptyProtections += r.Protection.EmptyProtectionCount
		rollup.TotalErrorProtections += r.Protection.ErrorProtectionCount
		rollup.TotalShrinkProtections += r.Protection.ShrinkProtectionCount
		if r.Unhealthy {
			rollup.UnhealthySourceCount++
		}
	}

	total := rollup.TotalHits + rollup.TotalMisses
	if total > 0 {
		rollup.HitRatio = float64(rollup.TotalHits) / float64(total)
	}
	return rollup
}

// RecentEvents returns the latest protection events for one source, capped
// at limit (detail views use 20, summaries use 5; see DetailEventLimit and
// SummaryEventLimit).
func RecentEvents(stats sourcecore.CacheProtectionStats, limit int) []sourcecore.ProtectionEvent {
	if limit <= 0 || limit > len(stats.Events) {
		limit = len(stats.Events)
	}
	return stats.Events[len(stats.Events)-limit:]
}

// DetailEventLimit and SummaryEventLimit are the two event-list depths
// used for detail vs. summary views.
const (
	DetailEventLimit  = detailEventLimit
	SummaryEventLimit = summaryEventLimit
)
