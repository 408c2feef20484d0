package main

import (
	"context"
	"time"

	"stockledger/pkg/logger"
)

// Relay drains the outbox.
type Relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
	PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error)
}

// KeyCleaner expires idempotency keys.
type KeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Options tune the worker loops.
type Options struct {
	PollInterval    time.Duration
	CleanupInterval time.Duration
	// PublishedRetention is how long delivered messages stay in sys_outbox.
	PublishedRetention time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = time.Hour
	}
	if o.PublishedRetention <= 0 {
		o.PublishedRetention = 7 * 24 * time.Hour
	}
	return o
}

// Worker runs the outbox relay and the periodic cleanups.
type Worker struct {
	relay Relay
	keys  KeyCleaner
	opts  Options
	log   *logger.Logger
}

// NewWorker creates a worker.
func NewWorker(relay Relay, keys KeyCleaner, opts Options, log *logger.Logger) *Worker {
	return &Worker{
		relay: relay,
		keys:  keys,
		opts:  opts.withDefaults(),
		log:   log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(w.opts.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// processOutbox drains until a batch delivers nothing.
func (w *Worker) processOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
		w.log.Debugw("processed outbox batch", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move outbox messages to DLQ", "error", err)
	} else if n > 0 {
		w.log.Warnw("moved failed outbox messages to DLQ", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, w.opts.PublishedRetention); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published outbox messages", "count", n)
	}

	if w.keys == nil {
		return
	}
	if n, err := w.keys.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
}
