package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/api"
	"github.com/etijucas/offline/internal/bus"
	"github.com/etijucas/offline/internal/connectivity"
	"github.com/etijucas/offline/internal/store"
)

// Handler executes one queued operation against the remote API. The
// idempotency key must ride on the request so a retry of a write that
// already landed server-side cannot create a duplicate.
type Handler func(ctx context.Context, payload []byte, idempotencyKey string) error

// Drainer polls the outbox and pushes due pending items through their
// registered handlers, oldest first.
type Drainer struct {
	db          *store.DB
	monitor     *connectivity.Monitor
	bus         *bus.Bus
	log         *zap.Logger
	handlers    map[string]Handler
	maxAttempts int
	interval    time.Duration
	now         func() time.Time
	cancel      context.CancelFunc
}

// NewDrainer creates a drainer. Handlers are registered per op before Start.
func NewDrainer(db *store.DB, monitor *connectivity.Monitor, b *bus.Bus, log *zap.Logger) *Drainer {
	return &Drainer{
		db:          db,
		monitor:     monitor,
		bus:         b,
		log:         log,
		handlers:    make(map[string]Handler),
		maxAttempts: DefaultMaxAttempts,
		interval:    time.Second,
		now:         time.Now,
	}
}

// SetMaxAttempts overrides the retry budget. Zero or negative keeps the
// default.
func (d *Drainer) SetMaxAttempts(n int) {
	if n > 0 {
		d.maxAttempts = n
	}
}

// Register binds an operation type to its executor.
func (d *Drainer) Register(op string, h Handler) {
	d.handlers[op] = h
}

// Start begins polling for due items. Items a previous process left in
// 'syncing' are returned to 'pending' first: that attempt never completed,
// and losing the write would break the queue's durability promise.
func (d *Drainer) Start(ctx context.Context) {
	if n, err := d.db.RecoverSyncingOutbox(d.now().UnixMilli()); err != nil {
		d.log.Error("failed to recover interrupted outbox items", zap.Error(err))
	} else if n > 0 {
		d.log.Info("recovered interrupted outbox items", zap.Int64("count", n))
	}
	ctx, d.cancel = context.WithCancel(ctx)
	go d.loop(ctx)
}

// Stop stops the drain loop. An in-flight attempt finishes; a queued item
// can only be stopped via CancelDraft before it starts.
func (d *Drainer) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Drainer) loop(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !d.monitor.Online() {
				continue
			}
			d.processDue(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Drainer) processDue(ctx context.Context) {
	due, err := d.db.DueOutbox(d.now().UnixMilli())
	if err != nil {
		d.log.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, item := range due {
		d.attempt(ctx, item)
	}
}

func (d *Drainer) attempt(ctx context.Context, item store.OutboxItem) {
	if err := d.db.MarkOutboxSyncing(item.ID); err != nil {
		d.log.Error("failed to mark syncing", zap.Error(err), zap.String("id", item.ID))
		return
	}
	d.publish(bus.KindOutboxSyncing, map[string]string{"id": item.ID, "op": item.Op})

	handler, ok := d.handlers[item.Op]
	if !ok {
		// No executor for this op; retrying cannot help.
		d.log.Error("no handler for outbox op", zap.String("op", item.Op), zap.String("id", item.ID))
		_ = d.db.MarkOutboxFailed(item.ID, item.RetryCount, "no handler for op "+item.Op)
		d.publish(bus.KindOutboxFailed, map[string]string{"id": item.ID, "op": item.Op})
		return
	}

	err := handler(ctx, item.Payload, item.IdempotencyKey)
	if err == nil {
		if err := d.db.DeleteOutbox(item.ID); err != nil {
			d.log.Error("failed to remove synced item", zap.Error(err), zap.String("id", item.ID))
		}
		d.log.Info("outbox item synced", zap.String("id", item.ID), zap.String("op", item.Op))
		d.publish(bus.KindOutboxSynced, map[string]string{"id": item.ID, "op": item.Op})
		return
	}

	retry := item.RetryCount + 1

	switch {
	case api.IsConflict(err):
		// The resource changed under the queued write. The user has to
		// reconcile; silent backoff-retry would clobber someone's edit.
		d.log.Warn("outbox item conflicted", zap.Error(err), zap.String("id", item.ID))
		_ = d.db.MarkOutboxFailed(item.ID, retry, err.Error())
		d.publish(bus.KindOutboxConflict, map[string]string{"id": item.ID, "op": item.Op, "error": err.Error()})

	case api.IsValidation(err):
		// A payload the server rejects today it rejects tomorrow.
		d.log.Warn("outbox item rejected", zap.Error(err), zap.String("id", item.ID))
		_ = d.db.MarkOutboxFailed(item.ID, retry, err.Error())
		d.publish(bus.KindOutboxFailed, map[string]string{"id": item.ID, "op": item.Op, "error": err.Error()})

	case retry >= d.maxAttempts:
		d.log.Warn("outbox item exhausted retries",
			zap.Error(err), zap.String("id", item.ID), zap.Int("attempts", retry))
		_ = d.db.MarkOutboxFailed(item.ID, retry, err.Error())
		d.publish(bus.KindOutboxFailed, map[string]string{"id": item.ID, "op": item.Op, "error": err.Error()})

	default:
		delay := Delay(retry)
		d.log.Warn("outbox attempt failed, backing off",
			zap.Error(err), zap.String("id", item.ID),
			zap.Int("retry", retry), zap.Duration("delay", delay))
		next := d.now().Add(delay).UnixMilli()
		_ = d.db.RescheduleOutbox(item.ID, retry, err.Error(), next)
	}
}

func (d *Drainer) publish(kind string, payload any) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
