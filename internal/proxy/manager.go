// Package proxy implements the process-wide proxy registry: selection
// policy, health checks, and lifecycle management for ProxyRecord entries.
// Concurrency follows a per-entity-mutex-inside-an-RWMutex-protected-map
// pattern.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"newsfeed-engine/internal/resilience/circuitbreaker"
)

// Status is the health state of a proxy.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusError  Status = "ERROR"
)

// Config is the static configuration for one proxy.
type Config struct {
	ID        string
	URL       string
	Group     string
	Priority  int
	HealthURL string
}

// Record is the runtime state of one proxy, guarded by its own mutex.
type Record struct {
	mu sync.Mutex

	id        string
	url       string
	group     string
	priority  int
	healthURL string

	status          Status
	totalRequests   int64
	successRequests int64
	avgResponseTime time.Duration
}

func newRecord(cfg Config) *Record {
	return &Record{
		id:        cfg.ID,
		url:       cfg.URL,
		group:     cfg.Group,
		priority:  cfg.Priority,
		healthURL: cfg.HealthURL,
		status:    StatusActive,
	}
}

// Snapshot is a read-only copy of a Record's state.
type Snapshot struct {
	ID, URL, Group  string
	Priority        int
	Status          Status
	SuccessRate     float64
	TotalRequests   int64
	AvgResponseTime time.Duration
}

func (r *Record) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		ID: r.id, URL: r.url, Group: r.group, Priority: r.priority,
		Status: r.status, SuccessRate: r.successRate(),
		TotalRequests: r.totalRequests, AvgResponseTime: r.avgResponseTime,
	}
}

func (r *Record) successRate() float64 {
	if r.totalRequests == 0 {
		return 100
	}
	return float64(r.successRequests) / float64(r.totalRequests) * 100
}

const (
	defaultHealthCheckURL  = "https://www.google.com/generate_204"
	defaultRefreshInterval = 300 * time.Second
	headPickProbability    = 0.8
)

// Manager is the process-wide proxy registry.
type Manager struct {
	mu      sync.RWMutex
	records map[string]*Record
	groups  map[string][]string // group -> ordered record IDs

	healthClient  *http.Client
	healthBreaker *circuitbreaker.CircuitBreaker
	refreshSource func(ctx context.Context) ([]Config, error)
	refreshEvery  time.Duration
	refreshLimit  *rate.Sometimes

	logger *slog.Logger
	rng    *rand.Rand
	rngMu  sync.Mutex
}

// NewManager constructs an empty Manager. refreshSource may be nil if
// Refresh is never called.
func NewManager(refreshSource func(ctx context.Context) ([]Config, error)) *Manager {
	refreshEvery := defaultRefreshInterval
	return &Manager{
		records:       make(map[string]*Record),
		groups:        make(map[string][]string),
		healthClient:  &http.Client{Timeout: 10 * time.Second},
		healthBreaker: circuitbreaker.New(circuitbreaker.ProxyHealthConfig()),
		refreshSource: refreshSource,
		refreshEvery:  refreshEvery,
		refreshLimit:  &rate.Sometimes{Interval: refreshEvery},
		logger:        slog.Default(),
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRefreshInterval overrides the default Refresh cadence.
func (m *Manager) WithRefreshInterval(d time.Duration) *Manager {
	m.refreshEvery = d
	m.refreshLimit = &rate.Sometimes{Interval: d}
	return m
}

// Add registers a new proxy.
func (m *Manager) Add(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[cfg.ID] = newRecord(cfg)
	group := cfg.Group
	if group == "" {
		group = "default"
	}
	m.groups[group] = append(m.groups[group], cfg.ID)
}

// Remove deregisters a proxy.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, id)
	for group, ids := range m.groups {
		for i, existing := range ids {
			if existing == id {
				m.groups[group] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
}

// Get returns one candidate under the selection policy: within a group,
// candidates are sorted by (priority desc, success_rate desc); with
// probability 0.8 the head is picked, otherwise a uniform-random active
// candidate. Falls back to the "default" group if the requested group is
// empty.
func (m *Manager) Get(_ context.Context, group string) (Snapshot, bool) {
	if group == "" {
		group = "default"
	}

	candidates := m.activeSnapshotsInGroup(group)
	if len(candidates) == 0 && group != "default" {
		candidates = m.activeSnapshotsInGroup("default")
	}
	if len(candidates) == 0 {
		return Snapshot{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].SuccessRate > candidates[j].SuccessRate
	})

	m.rngMu.Lock()
	pick := m.rng.Float64()
	idx := 0
	if pick >= headPickProbability {
		idx = m.rng.Intn(len(candidates))
	}
	m.rngMu.Unlock()

	return candidates[idx], true
}

func (m *Manager) activeSnapshotsInGroup(group string) []Snapshot {
	m.mu.RLock()
	ids := append([]string(nil), m.groups[group]...)
	m.mu.RUnlock()

	var out []Snapshot
	for _, id := range ids {
		m.mu.RLock()
		rec := m.records[id]
		m.mu.RUnlock()
		if rec == nil {
			continue
		}
		snap := rec.snapshot()
		if snap.Status == StatusActive {
			out = append(out, snap)
		}
	}
	return out
}

// Report updates a proxy's counters atomically and flips it to ERROR when
// success_rate drops below 30% with at least 10 observed requests.
func (m *Manager) Report(id string, success bool, elapsed time.Duration) {
	m.mu.RLock()
	rec := m.records[id]
	m.mu.RUnlock()
	if rec == nil {
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.totalRequests++
	if success {
		rec.successRequests++
		if rec.avgResponseTime == 0 {
			rec.avgResponseTime = elapsed
		} else {
			// EMA with weight 0.3 on the new sample.
			rec.avgResponseTime = time.Duration(0.7*float64(rec.avgResponseTime) + 0.3*float64(elapsed))
		}
	}

	if rec.totalRequests >= 10 && rec.successRate() < 30 {
		rec.status = StatusError
	}
}

// HealthCheck issues a GET against the proxy's health URL (or a stable
// default) with a 10s timeout and updates status/avg_response_time.
func (m *Manager) HealthCheck(ctx context.Context, id string) error {
	m.mu.RLock()
	rec := m.records[id]
	m.mu.RUnlock()
	if rec == nil {
		return fmt.Errorf("proxy %s: %w", id, errNotFound)
	}

	rec.mu.Lock()
	healthURL := rec.healthURL
	if healthURL == "" {
		healthURL = defaultHealthCheckURL
	}
	rec.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, healthURL, nil)
	if err != nil {
		return fmt.Errorf("build health check request: %w", err)
	}

	// Health probes all hit the same reference origin; with that origin
	// itself down, the breaker keeps a sweep across the pool from issuing
	// dozens of doomed requests and mass-flagging healthy proxies.
	start := time.Now()
	result, err := m.healthBreaker.Execute(func() (interface{}, error) {
		return m.healthClient.Do(req)
	})
	elapsed := time.Since(start)

	// An open circuit means the reference origin itself is unreachable;
	// that says nothing about this proxy, so its status stays as-is.
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("proxy %s health check skipped: %w", id, err)
	}

	var resp *http.Response
	if result != nil {
		resp = result.(*http.Response)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if err != nil || resp.StatusCode >= 500 {
		rec.status = StatusError
		if resp != nil {
			_ = resp.Body.Close()
		}
		return fmt.Errorf("proxy %s health check failed: %w", id, err)
	}
	_ = resp.Body.Close()

	rec.status = StatusActive
	rec.avgResponseTime = elapsed
	return nil
}

// Refresh reloads the pool from refreshSource, rate-limited to once per
// refreshEvery (default 300s) via rate.Sometimes.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.refreshSource == nil {
		return nil
	}

	var err error
	m.refreshLimit.Do(func() {
		var configs []Config
		configs, err = m.refreshSource(ctx)
		if err != nil {
			err = fmt.Errorf("refresh proxy pool: %w", err)
			return
		}
		for _, cfg := range configs {
			m.Add(cfg)
		}
	})
	return err
}

// Snapshots returns every known proxy regardless of status, for telemetry
// mirroring.
func (m *Manager) Snapshots() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var errNotFound = errors.New("proxy not found")
