// Package watcher keeps the reverse proxy's upstream list in sync with
// the live replica set. The container runtime and the
// proxy's config renderer/reload mechanics are external collaborators
// (an explicit out-of-scope boundary); this package depends only on the two narrow
// interfaces below, grounded on the same provider-interface idiom as
// internal/executor.ContainerRuntime.
package watcher

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"
)

const defaultReconcileInterval = 3 * time.Second

// Endpoint is one upstream entry the proxy should route to.
type Endpoint struct {
	Name string
	IP   string
	Port int
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.IP, e.Port)
}

// RuntimeLister enumerates running containers matching the primary name
// or its sibling pattern and reports each one's first network IP.
type RuntimeLister interface {
	ListEndpoints(ctx context.Context, namePattern string, port int) ([]Endpoint, error)
}

// ProxyWriter persists the ordered backend list and triggers a reload,
// only when the list actually changed.
type ProxyWriter interface {
	// Write persists backendList (already ordered) as the upstream
	// configuration and returns whether it differed from what was
	// previously written.
	Write(ctx context.Context, backendList []string) (changed bool, err error)
	Reload(ctx context.Context) error
}

// Config is the watcher's tunable surface.
type Config struct {
	Target            string
	Port              int
	ReconcileInterval time.Duration
}

// Watcher runs the periodic reconciliation loop.
type Watcher struct {
	cfg     Config
	runtime RuntimeLister
	proxy   ProxyWriter
	pattern *regexp.Regexp
}

// New builds a Watcher, defaulting ReconcileInterval to 3s when unset.
func New(cfg Config, runtime RuntimeLister, proxy ProxyWriter) *Watcher {
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	return &Watcher{
		cfg:     cfg,
		runtime: runtime,
		proxy:   proxy,
		pattern: regexp.MustCompile(fmt.Sprintf(`^%s(-dup-\d+)?$`, regexp.QuoteMeta(cfg.Target))),
	}
}

// Run blocks, reconciling every ReconcileInterval until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Reconcile errors are discarded here, not logged; the next
			// tick retries.
			_, _ = w.Reconcile(ctx)
		}
	}
}

// Reconcile performs one pass: list endpoints, diff against what was last
// written, and write+reload only on change. It returns whether the
// backend list changed, so tests and the production loop share one code
// path.
func (w *Watcher) Reconcile(ctx context.Context) (bool, error) {
	endpoints, err := w.runtime.ListEndpoints(ctx, w.cfg.Target, w.cfg.Port)
	if err != nil {
		return false, fmt.Errorf("list endpoints: %w", err)
	}

	backendList := make([]string, len(endpoints))
	for i, e := range endpoints {
		backendList[i] = e.String()
	}
	sort.Strings(backendList)

	changed, err := w.proxy.Write(ctx, backendList)
	if err != nil {
		return false, fmt.Errorf("write backend list: %w", err)
	}
	if !changed {
		return false, nil
	}
	if err := w.proxy.Reload(ctx); err != nil {
		return true, fmt.Errorf("reload proxy: %w", err)
	}
	return true, nil
}
