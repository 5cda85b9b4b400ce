package sourcecore

import "time"

// ProtectionKind discriminates the three cache-protection policies.
type ProtectionKind string

const (
	ProtectionEmpty  ProtectionKind = "empty_protection"
	ProtectionError  ProtectionKind = "error_protection"
	ProtectionShrink ProtectionKind = "shrink_protection"
)

// ProtectionEvent is one entry in the bounded protection-event ring.
type ProtectionEvent struct {
	Kind        ProtectionKind
	At          time.Time
	CachedSize  int
	FetchedSize int
	Err         string
}

const protectionRingCap = 20

// CacheProtectionStats holds per-source protection counters and the last 20
// protection events.
type CacheProtectionStats struct {
	EmptyProtectionCount  int64
	ErrorProtectionCount  int64
	ShrinkProtectionCount int64
	Events                []ProtectionEvent
}

func (s *CacheProtectionStats) record(kind ProtectionKind, cachedSize, fetchedSize int, errMsg string) {
	switch kind {
	case ProtectionEmpty:
		s.EmptyProtectionCount++
	case ProtectionError:
		s.ErrorProtectionCount++
	case ProtectionShrink:
		s.ShrinkProtectionCount++
	}

	s.Events = append(s.Events, ProtectionEvent{
		Kind: kind, At: time.Now(), CachedSize: cachedSize, FetchedSize: fetchedSize, Err: errMsg,
	})
	if len(s.Events) > protectionRingCap {
		s.Events = s.Events[len(s.Events)-protectionRingCap:]
	}
}

// Snapshot returns a value copy of the stats safe to hand to telemetry
// readers without risking aliasing of the Events slice.
func (s CacheProtectionStats) Snapshot() CacheProtectionStats {
	out := s
	out.Events = append([]ProtectionEvent(nil), s.Events...)
	return out
}

// CacheMetrics holds per-source cache-hit/miss/update counters and the
// current/max cache-size and last-fetch-duration gauges.
type CacheMetrics struct {
	CacheHit          int64
	CacheMiss         int64
	EmptyResult       int64
	FetchError        int64
	CacheUpdate       int64
	CurrentCacheSize  int
	MaxCacheSize      int
	LastFetchDuration time.Duration
}

func (m *CacheMetrics) observeSize(n int) {
	m.CurrentCacheSize = n
	if n > m.MaxCacheSize {
		m.MaxCacheSize = n
	}
}
