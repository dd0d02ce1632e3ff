// Package outbox drains undispatched OutboxEvent rows to the
// Notification adapter on a fixed schedule, per spec §4.3.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"order-orchestrator/internal/clients"
	"order-orchestrator/internal/correlation"
	"order-orchestrator/internal/logger"
	"order-orchestrator/internal/models"
	"order-orchestrator/internal/store"
)

// Dispatcher runs the periodic drain. A tick is skipped entirely if
// the previous tick is still enumerating, and within a tick every
// event is dispatched concurrently.
type Dispatcher struct {
	store        store.Store
	notification clients.Notification
	log          *logger.Logger
	interval     time.Duration

	running sync.Mutex
}

func NewDispatcher(st store.Store, notification clients.Notification, log *logger.Logger, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Dispatcher{store: st, notification: notification, log: log, interval: interval}
}

// Run blocks until ctx is cancelled, ticking every d.interval.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	if !d.running.TryLock() {
		d.log.Warn("OUTBOX", "previous tick still enumerating, skipping")
		return
	}
	defer d.running.Unlock()

	events, err := d.store.FetchUndispatchedEvents(ctx)
	if err != nil {
		d.log.Error("OUTBOX", fmt.Sprintf("fetch undispatched events failed: %v", err))
		return
	}
	if len(events) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, event := range events {
		wg.Add(1)
		go func(event models.OutboxEvent) {
			defer wg.Done()
			d.dispatchOne(ctx, event)
		}(event)
	}
	wg.Wait()
}

func (d *Dispatcher) dispatchOne(ctx context.Context, event models.OutboxEvent) {
	eventCtx := correlation.WithID(ctx, event.CorrelationID)

	if err := d.notification.SendEvent(eventCtx, event); err != nil {
		d.log.WithCorrelation(event.CorrelationID).Error("OUTBOX",
			fmt.Sprintf("dispatch failed for event id=%s type=%s: %v, will retry next tick", event.ID, event.EventType, err))
		return
	}

	if err := d.store.MarkDispatched(ctx, event.ID); err != nil {
		d.log.WithCorrelation(event.CorrelationID).Error("OUTBOX",
			fmt.Sprintf("marking event id=%s dispatched failed: %v", event.ID, err))
	}
}
