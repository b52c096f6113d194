package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Builder creates the Orchestrator for a portal.
type Builder func(ctx context.Context, portalID string) (*Orchestrator, error)

// Launcher runs background syncs, at most one per portal at a time.
type Launcher struct {
	build   Builder
	timeout time.Duration

	mu      sync.Mutex
	running map[string]bool
	last    map[string]*Summary
	wg      sync.WaitGroup
}

// NewLauncher creates a Launcher. Each run is bounded by timeout.
func NewLauncher(build Builder, timeout time.Duration) *Launcher {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Launcher{
		build:   build,
		timeout: timeout,
		running: make(map[string]bool),
		last:    make(map[string]*Summary),
	}
}

// Start launches a sync for portalID unless one is already running. It
// reports whether a new run was started.
func (l *Launcher) Start(portalID string) bool {
	l.mu.Lock()
	if l.running[portalID] {
		l.mu.Unlock()
		zap.L().Debug("sync: already running", zap.String("portal_id", portalID))
		return false
	}
	l.running[portalID] = true
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer func() {
			l.mu.Lock()
			delete(l.running, portalID)
			l.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		o, err := l.build(ctx, portalID)
		if err != nil {
			zap.L().Error("sync: build orchestrator", zap.String("portal_id", portalID), zap.Error(err))
			l.record(portalID, &Summary{PortalID: portalID, StartedAt: time.Now().UTC(), Error: err.Error()})
			return
		}
		sum, err := o.Run(ctx)
		if err != nil {
			zap.L().Warn("sync: background run failed", zap.String("portal_id", portalID), zap.Error(err))
		}
		l.record(portalID, sum)
	}()
	return true
}

func (l *Launcher) record(portalID string, sum *Summary) {
	if sum == nil {
		return
	}
	l.mu.Lock()
	l.last[portalID] = sum
	l.mu.Unlock()
}

// Last returns the summary of the most recent finished run for portalID.
// Failed runs are included and carry Error.
func (l *Launcher) Last(portalID string) (*Summary, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.last[portalID]
	return s, ok
}

// Wait blocks until every started sync has finished.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
