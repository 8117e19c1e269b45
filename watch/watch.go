// Package watch repeatedly re-runs a full A2S interrogation of a fixed
// endpoint set on an interval, the periodic-refresh idiom the teacher
// used for a single-endpoint cache feed (poller/poller.go), generalized
// here to the Dispatcher's multi-endpoint, four-stage query instead of
// a single endpoint's raw A2S_INFO/A2S_PLAYER bytes.
package watch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/augiro/a2s-query/a2s"
)

// DefaultInterval matches the teacher's poller ticker period.
const DefaultInterval = 10 * time.Second

// Watcher periodically runs a fresh Dispatcher over a fixed endpoint set
// and keeps each one's result from the latest run, complete or not, in a
// Snapshot.
//
// A Dispatcher "serves exactly one Run" (dispatcher.go) — its transport
// is bound once and closed once, and Run's background goroutines (in
// particular recvLoop) are not guaranteed to have fully exited the
// instant Done fires, only that the socket has been closed. Reusing one
// Dispatcher/Transport pair across ticks would let one tick's Bind()
// race the previous tick's still-unwinding recvLoop goroutine against
// the same *net.UDPConn. Watcher instead builds a brand new Dispatcher,
// and therefore a brand new default transport, on every refresh —
// cheap relative to a UDP round trip, and it keeps each run's socket
// lifetime fully self-contained the way the dispatcher's contract
// assumes.
type Watcher struct {
	log      *zap.SugaredLogger
	resolver a2s.Resolver
	cfg      a2s.Config
	configs  []a2s.EndpointConfig
	interval time.Duration
	snapshot *Snapshot
}

// New builds a Watcher. resolver may be nil to use the default resolver.
// interval <= 0 falls back to DefaultInterval.
func New(log *zap.SugaredLogger, resolver a2s.Resolver, cfg a2s.Config, configs []a2s.EndpointConfig, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		log:      log,
		resolver: resolver,
		cfg:      cfg,
		configs:  configs,
		interval: interval,
		snapshot: NewSnapshot(),
	}
}

// Snapshot exposes the latest refreshed results.
func (w *Watcher) Snapshot() *Snapshot { return w.snapshot }

// Start runs an initial query immediately, then one every interval,
// until ctx is canceled. Per-run errors are logged, not fatal: a single
// bad poll shouldn't stop the watcher from trying again next tick.
func (w *Watcher) Start(ctx context.Context) {
	if err := w.refresh(ctx); err != nil {
		w.log.Errorw("refresh failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("started watcher successfully")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.refresh(ctx); err != nil {
				w.log.Errorw("refresh failed", "error", err)
			}
		}
	}
}

func (w *Watcher) refresh(ctx context.Context) error {
	dispatcher := a2s.NewDispatcher(w.log, w.resolver, nil, w.cfg)

	events, err := dispatcher.Run(ctx, w.configs)
	if err != nil {
		return err
	}

	for {
		select {
		case e, ok := <-events.Error:
			if !ok {
				continue
			}
			w.log.Debugw("watch run error", "error", e)
		case done, ok := <-events.Done:
			if !ok {
				return nil
			}
			for _, ep := range done {
				w.snapshot.Put(ep)
			}
			return nil
		}
	}
}
