package strategy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"newsfeed-engine/internal/domain/entity"
)

// Session is one headless-browser session, acquired for the duration of a
// single Fetch call and guaranteed to be released afterward.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, d time.Duration) error
	Extract(ctx context.Context, sel entity.SelectorConfig) ([]entity.NewsItem, error)
	Close() error
}

// SessionPool hands out Sessions. A real implementation wraps a browser
// automation driver's tab pool; this strategy never holds a Session beyond
// one Fetch call.
type SessionPool interface {
	Acquire(ctx context.Context, headless bool) (Session, error)
}

// BrowserStrategy drives a headless session through navigate/wait/extract,
// releasing it unconditionally, and falls back to a plain HTTP scrape when
// the source allows it and the browser session cannot be acquired or fails.
// Sessions are always acquired with a deferred release. A session whose
// Close fails is counted and reported by OrphanedSessions; nothing
// terminates such sessions afterwards.
type BrowserStrategy struct {
	descriptor *entity.SourceDescriptor
	pool       SessionPool
	pageURL    string
	fallback   *WebScrapeStrategy

	orphanCount atomic.Int64
}

// NewBrowserStrategy constructs a BrowserStrategy. fallback may be nil if
// descriptor.Browser.HTTPFallbackAllowed is false.
func NewBrowserStrategy(descriptor *entity.SourceDescriptor, pool SessionPool, pageURL string, fallback *WebScrapeStrategy) *BrowserStrategy {
	return &BrowserStrategy{descriptor: descriptor, pool: pool, pageURL: pageURL, fallback: fallback}
}

// Fetch satisfies sourcecore.Strategy.
func (s *BrowserStrategy) Fetch(ctx context.Context) ([]entity.NewsItem, error) {
	browserCfg := s.descriptor.Browser

	sessionTimeout := browserCfg.SessionTimeout
	if sessionTimeout <= 0 {
		sessionTimeout = 45 * time.Second
	}
	sessionCtx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()

	items, err := s.runSession(sessionCtx, browserCfg)
	if err == nil {
		return finalizeItems(s.descriptor, items), nil
	}

	if browserCfg.HTTPFallbackAllowed && s.fallback != nil {
		fallbackItems, fallbackErr := s.fallback.Fetch(ctx)
		if fallbackErr == nil {
			return fallbackItems, nil
		}
		return nil, fmt.Errorf("browser_automated: session failed (%w) and http fallback failed: %v", err, fallbackErr)
	}

	return nil, fmt.Errorf("browser_automated: %w", err)
}

func (s *BrowserStrategy) runSession(ctx context.Context, cfg entity.BrowserConfig) ([]entity.NewsItem, error) {
	session, err := s.pool.Acquire(ctx, cfg.Headless)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}

	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			if closeErr := session.Close(); closeErr != nil {
				s.orphanCount.Add(1)
			}
		})
	}
	defer release()

	if err := session.Navigate(ctx, s.pageURL); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	waitTime := cfg.WaitTime
	if waitTime <= 0 {
		waitTime = 2 * time.Second
	}
	if err := session.WaitFor(ctx, waitTime); err != nil {
		return nil, fmt.Errorf("wait: %w", err)
	}

	items, err := session.Extract(ctx, s.descriptor.Selectors)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if len(items) == 0 {
		return nil, newNoContentError(s.descriptor.SourceID, "browser extract yielded nothing")
	}

	return items, nil
}

// OrphanedSessions reports how many sessions this strategy failed to close
// cleanly; the orchestrator logs this count at shutdown.
func (s *BrowserStrategy) OrphanedSessions() int64 {
	return s.orphanCount.Load()
}
