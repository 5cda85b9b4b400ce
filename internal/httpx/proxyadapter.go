package httpx

import (
	"context"
	"time"

	"newsfeed-engine/internal/proxy"
)

// managerAdapter satisfies ProxyProvider over a concrete *proxy.Manager so
// the substrate itself never imports proxy.Snapshot's full shape.
type managerAdapter struct {
	mgr *proxy.Manager
}

// NewProxyAdapter wraps a *proxy.Manager for use as a Client's ProxyProvider.
func NewProxyAdapter(mgr *proxy.Manager) ProxyProvider {
	if mgr == nil {
		return nil
	}
	return &managerAdapter{mgr: mgr}
}

func (a *managerAdapter) Get(ctx context.Context, group string) (ProxySnapshot, bool) {
	snap, ok := a.mgr.Get(ctx, group)
	if !ok {
		return ProxySnapshot{}, false
	}
	return ProxySnapshot{ID: snap.ID, URL: snap.URL}, true
}

func (a *managerAdapter) Report(id string, success bool, elapsed time.Duration) {
	a.mgr.Report(id, success, elapsed)
}
