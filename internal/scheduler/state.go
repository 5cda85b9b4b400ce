package scheduler

import (
	"sync"
	"time"

	"newsfeed-engine/internal/domain/entity"
)

const historyCap = 10

// historyEntry is one fetch outcome retained for adaptive scoring.
type historyEntry struct {
	At        time.Time
	ItemCount int
	Success   bool
}

// SourceRuntimeState is the scheduler's per-source adaptive state. It is owned exclusively by the scheduler and mutated only under its
// own mutex; telemetry observers receive a value-copy Snapshot, never a
// pointer.
type SourceRuntimeState struct {
	mu sync.Mutex

	descriptor *entity.SourceDescriptor

	lastFetch         time.Time
	currentlyFetching bool
	adaptiveInterval  time.Duration
	frequencyScore    float64
	lastGrowthRate    float64
	history           []historyEntry
}

func newRuntimeState(d *entity.SourceDescriptor) *SourceRuntimeState {
	return &SourceRuntimeState{
		descriptor:       d,
		adaptiveInterval: d.UpdateInterval,
		frequencyScore:   0.5,
	}
}

// effectiveInterval returns the interval ShouldFetch compares elapsed time
// against: the adaptive interval when enabled, else the static configured
// interval.
func (s *SourceRuntimeState) effectiveInterval() time.Duration {
	if s.descriptor.EnableAdaptive {
		return s.adaptiveInterval
	}
	return s.descriptor.UpdateInterval
}

// StateSnapshot is a read-only copy of SourceRuntimeState for telemetry.
type StateSnapshot struct {
	SourceID          string
	LastFetch         time.Time
	CurrentlyFetching bool
	AdaptiveInterval  time.Duration
	EffectiveInterval time.Duration
	FrequencyScore    float64
	LastGrowthRate    float64
	HistoryLen        int
	SuccessRate       float64
}

// Snapshot returns a point-in-time copy safe for concurrent readers.
func (s *SourceRuntimeState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{
		SourceID:          s.descriptor.SourceID,
		LastFetch:         s.lastFetch,
		CurrentlyFetching: s.currentlyFetching,
		AdaptiveInterval:  s.adaptiveInterval,
		EffectiveInterval: s.effectiveInterval(),
		FrequencyScore:    s.frequencyScore,
		LastGrowthRate:    s.lastGrowthRate,
		HistoryLen:        len(s.history),
		SuccessRate:       successRate(s.history),
	}
}

func (s *SourceRuntimeState) recordHistory(at time.Time, itemCount int, success bool) {
	s.history = append(s.history, historyEntry{At: at, ItemCount: itemCount, Success: success})
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

func successRate(history []historyEntry) float64 {
	if len(history) == 0 {
		return 0
	}
	var count int
	for _, h := range history {
		if h.Success {
			count++
		}
	}
	return float64(count) / float64(len(history))
}

// avgGrowthRate is the mean, over consecutive history pairs, of
// Δitems / Δtime_seconds. It is tracked for
// telemetry; the interval-recomputation score itself depends only on
// frequency_score and success_rate step 3.
func avgGrowthRate(history []historyEntry) float64 {
	if len(history) < 2 {
		return 0
	}
	var sum float64
	var n int
	for i := 1; i < len(history); i++ {
		dt := history[i].At.Sub(history[i-1].At).Seconds()
		if dt <= 0 {
			continue
		}
		di := history[i].ItemCount - history[i-1].ItemCount
		sum += float64(di) / dt
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// updateFrequencyScore blends the EMA upstream-freshness gauge from the most
// recent successful fetch's newest published_at.
func (s *SourceRuntimeState) updateFrequencyScore(now time.Time, items []entity.NewsItem, success bool) {
	if !success {
		return
	}
	var newest time.Time
	for _, item := range items {
		if item.PublishedAt.After(newest) {
			newest = item.PublishedAt
		}
	}
	if newest.IsZero() {
		return
	}

	delta := now.Sub(newest).Seconds()
	var sample float64
	switch {
	case delta < 300:
		sample = 0.9
	case delta < 900:
		sample = 0.7
	case delta < 1800:
		sample = 0.5
	case delta < 3600:
		sample = 0.3
	default:
		sample = 0.1
	}
	s.frequencyScore = 0.7*s.frequencyScore + 0.3*sample
}

// recomputeAdaptiveInterval applies the score-banded interval selection and
// time-of-day bias. Only called when adaptive
// scheduling is enabled and at least 2 history entries exist.
func (s *SourceRuntimeState) recomputeAdaptiveInterval(now time.Time) {
	if len(s.history) < 2 {
		return
	}

	s.lastGrowthRate = avgGrowthRate(s.history)
	rate := successRate(s.history)
	score := 0.6*s.frequencyScore + 0.4*rate

	def := s.descriptor.UpdateInterval
	min := s.descriptor.MinInterval
	max := s.descriptor.MaxInterval

	var next time.Duration
	switch {
	case score > 0.8:
		next = maxDuration(min, time.Duration(float64(def)*0.5))
	case score > 0.6:
		next = maxDuration(min, time.Duration(float64(def)*0.8))
	case score > 0.4:
		next = def
	case score > 0.2:
		next = minDuration(max, time.Duration(float64(def)*1.2))
	default:
		next = minDuration(max, time.Duration(float64(def)*1.5))
	}

	hour := now.Local().Hour()
	if hour >= 8 && hour < 22 {
		next = maxDuration(min, time.Duration(float64(next)*0.9))
	} else {
		next = minDuration(max, time.Duration(float64(next)*1.1))
	}

	s.adaptiveInterval = clampDuration(next, min, max)
}

// backoff applies the standalone failure-path penalty:
// independent of, and not combined with, the score recomputation above.
func (s *SourceRuntimeState) backoff() {
	max := s.descriptor.MaxInterval
	s.adaptiveInterval = minDuration(max, time.Duration(float64(s.adaptiveInterval)*1.5))
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
