// Package worker mirrors recorded transactions into a secondary store.
package worker

import (
	"context"
	"fmt"
	"time"

	"esuvi/internal/amqp"
	"esuvi/internal/cache"
	"esuvi/internal/identity"
	"esuvi/internal/ledger"
	"esuvi/internal/log"
)

const (
	seenSize    = 10_000
	seenTTL     = 24 * time.Hour
	cleanupTick = 10 * time.Minute
)

// Consumer delivers transaction events to a handler until ctx is done.
type Consumer interface {
	ConsumeTransactionRecorded(ctx context.Context, prefetch int, handler amqp.Handler) error
}

// MirrorWorker copies every recorded transaction into target. Deliveries are
// at-least-once, so recently mirrored IDs are remembered and skipped.
type MirrorWorker struct {
	target ledger.Store
	seen   *cache.LRUCache[struct{}]
	logger *log.Logger
}

func NewMirrorWorker(target ledger.Store, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		target: target,
		seen:   cache.NewLRUCache[struct{}](seenSize, seenTTL),
		logger: log.OrDiscard(logger).WithComponent(log.ComponentWorker),
	}
}

// HandleTransactionRecorded mirrors one event. An error makes the broker
// redeliver the message.
func (w *MirrorWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	tx := msg.Transaction
	if _, ok := w.seen.Get(tx.ID); ok {
		w.logger.DebugContext(ctx, "Skipping already mirrored transaction", log.FieldTxID, tx.ID)
		return nil
	}

	if tx.Owner != "" {
		ctx = identity.NewContext(ctx, identity.Identity{UserID: tx.Owner})
	}
	if err := w.target.Put(ctx, tx); err != nil {
		return fmt.Errorf("mirror transaction %s: %w", tx.ID, err)
	}
	w.seen.Set(tx.ID, struct{}{})

	w.logger.InfoContext(ctx, "Mirrored transaction",
		log.FieldOperation, log.OpMirror,
		log.FieldTxID, tx.ID,
		log.FieldAmountCents, tx.Amount.Cents,
		"published_at", msg.Timestamp.Format(time.RFC3339))
	return nil
}

// Run consumes events until ctx is done, pruning the duplicate filter in the
// background.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer, prefetch int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go cache.RunCleanup(ctx, cleanupTick, func(n int) {
		w.logger.Debug("Pruned mirrored ids", log.FieldCount, n)
	}, w.seen)

	w.logger.InfoContext(ctx, "Mirror worker started", "prefetch", prefetch)
	return consumer.ConsumeTransactionRecorded(ctx, prefetch, w.HandleTransactionRecorded)
}
