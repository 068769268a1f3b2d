// Package prune expires old lookup and pipeline history on a schedule.
package prune

import (
	"context"
	"log/slog"
	"time"
)

// HistoryStore abstracts the retention operation.
type HistoryStore interface {
	PruneBefore(cutoff time.Time) (int64, error)
}

// Worker periodically deletes history rows older than the retention
// window.
type Worker struct {
	store    HistoryStore
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker. interval defaults to 1h when <= 0; maxAge
// defaults to 30 days when <= 0.
func NewWorker(store HistoryStore, interval, maxAge time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return &Worker{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   slog.Default(),
	}
}

// Run sweeps on the configured interval until ctx is cancelled. The first
// sweep happens immediately.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := w.RunOnce(); err != nil {
			w.logger.Error("history prune failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval):
		}
	}
}

// RunOnce performs a single retention sweep.
func (w *Worker) RunOnce() error {
	cutoff := time.Now().UTC().Add(-w.maxAge)
	n, err := w.store.PruneBefore(cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		w.logger.Info("pruned history rows", "rows", n, "cutoff", cutoff)
	}
	return nil
}
