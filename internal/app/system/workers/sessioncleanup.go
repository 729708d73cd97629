// internal/app/system/workers/sessioncleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// SessionCleanup is a background worker that closes login-session records
// nobody has touched within the inactivity threshold.
type SessionCleanup struct {
	sessions          store.SessionStore
	log               *zap.Logger
	interval          time.Duration
	inactiveThreshold time.Duration
	now               func() time.Time
	stopCh            chan struct{}
	stopOnce          sync.Once
	wg                sync.WaitGroup
}

// NewSessionCleanup creates a new session cleanup worker.
//
// Parameters:
//   - sessions: the login-session store
//   - logger: zap logger for logging
//   - interval: how often to run cleanup (e.g., 5 minutes)
//   - inactiveThreshold: idle time after which a session is closed, normally the cookie lifetime
func NewSessionCleanup(sessions store.SessionStore, logger *zap.Logger, interval, inactiveThreshold time.Duration) *SessionCleanup {
	return &SessionCleanup{
		sessions:          sessions,
		log:               logger,
		interval:          interval,
		inactiveThreshold: inactiveThreshold,
		now:               time.Now,
		stopCh:            make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *SessionCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("inactive_threshold", w.inactiveThreshold))
}

// Stop signals the worker to stop and waits for it to finish. Safe to
// call more than once.
func (w *SessionCleanup) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("session cleanup worker stopped")
}

func (w *SessionCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(context.Background())
		}
	}
}

// RunOnce closes idle sessions and returns how many were closed.
func (w *SessionCleanup) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	count, err := w.sessions.CloseInactive(ctx, w.now().Add(-w.inactiveThreshold))
	if err != nil {
		w.log.Error("failed to close inactive sessions", zap.Error(err))
		return 0
	}
	if count > 0 {
		w.log.Info("closed inactive sessions", zap.Int64("count", count))
	}
	return count
}
