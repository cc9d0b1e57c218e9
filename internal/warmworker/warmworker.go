// Package warmworker implements the façade's background reader-warming
// task: a debounced, single-flight signal channel. It collapses every
// wake to a single signal kind ("something may have changed") rather
// than typed file events, so coalescing reduces to "latest wakeup wins,
// timer resets."
package warmworker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDebounce is the minimum interval between warm reloads used when
// no interval is configured.
const DefaultDebounce = 120 * time.Millisecond

// Reload is the callback invoked on each debounced wake: reopen the
// reader and touch enough of it (e.g. a MatchAll limit=1 search) to page
// it into the OS cache. Reload must not block indefinitely; it receives
// a context the worker cancels on Stop.
type Reload func(ctx context.Context) error

// Worker coalesces rapid wake signals and runs Reload at most once per
// debounce window. It is safe for concurrent use and never blocks
// callers of Wake.
type Worker struct {
	debounce time.Duration
	reload   Reload
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool

	runMu sync.Mutex // held for the whole of a reload, so reloads never overlap

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	runs     atomic.Int64
	failures atomic.Int64
	lastErr  atomic.Value // string
}

// New creates a Worker. debounce <= 0 uses DefaultDebounce. logger may be
// nil, in which case a discarding logger is used.
func New(debounce time.Duration, reload Reload, logger *slog.Logger) *Worker {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discard{}, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		debounce: debounce,
		reload:   reload,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Wake schedules a warm reload after the debounce window. Calling Wake
// again before the window elapses resets the timer, so the latest
// wakeup wins. Wake never blocks and is safe to call from a writer's
// commit path.
func (w *Worker) Wake() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.run)
}

func (w *Worker) run() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := w.reload(w.ctx)
	w.runs.Add(1)
	if err != nil {
		w.failures.Add(1)
		w.lastErr.Store(err.Error())
		w.logger.Warn("warm worker reload failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return
	}
	w.logger.Debug("warm worker reload completed",
		slog.Duration("elapsed", time.Since(start)),
	)
}

// Stats is a snapshot of the worker's counters, surfaced via the
// façade's metrics() operation.
type Stats struct {
	Runs     int64
	Failures int64
	LastErr  string
}

// Stats returns a snapshot of the worker's run/failure counters.
func (w *Worker) Stats() Stats {
	lastErr, _ := w.lastErr.Load().(string)
	return Stats{
		Runs:     w.runs.Load(),
		Failures: w.failures.Load(),
		LastErr:  lastErr,
	}
}

// Stop cancels any pending or in-flight reload and prevents further
// wakes. It blocks until any in-flight reload returns. Safe to call
// multiple times.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
