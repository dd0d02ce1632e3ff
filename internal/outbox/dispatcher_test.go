package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-orchestrator/internal/logger"
	"order-orchestrator/internal/models"
	"order-orchestrator/internal/store"
)

type fakeStore struct {
	store.Store
	mu         sync.Mutex
	events     []models.OutboxEvent
	dispatched map[string]bool
}

func newFakeStore(events []models.OutboxEvent) *fakeStore {
	return &fakeStore{events: events, dispatched: map[string]bool{}}
}

func (s *fakeStore) FetchUndispatchedEvents(ctx context.Context) ([]models.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []models.OutboxEvent
	for _, e := range s.events {
		if !s.dispatched[e.ID] {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (s *fakeStore) MarkDispatched(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched[id] = true
	return nil
}

func (s *fakeStore) isDispatched(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatched[id]
}

type fakeNotification struct {
	fail bool
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotification) SendEvent(ctx context.Context, event models.OutboxEvent) error {
	if n.fail {
		return errors.New("notification sink unavailable")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, event.ID)
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(t.TempDir())
}

func TestDispatcher_StableAdapterEventuallyMarksAllDispatched(t *testing.T) {
	events := []models.OutboxEvent{
		{ID: "evt-1", AggregateID: "1", EventType: models.EventTypeOrderConfirmed},
		{ID: "evt-2", AggregateID: "2", EventType: models.EventTypeOrderCancelled},
		{ID: "evt-3", AggregateID: "3", EventType: models.EventTypeOrderRefunded},
	}
	st := newFakeStore(events)
	notif := &fakeNotification{}

	d := NewDispatcher(st, notif, testLogger(t), time.Second)
	d.tick(context.Background())

	for _, e := range events {
		assert.True(t, st.isDispatched(e.ID), "event %s should be marked dispatched", e.ID)
	}
}

func TestDispatcher_FailingAdapterNeverMarksDispatched(t *testing.T) {
	events := []models.OutboxEvent{
		{ID: "evt-1", AggregateID: "1", EventType: models.EventTypeOrderConfirmed},
	}
	st := newFakeStore(events)
	notif := &fakeNotification{fail: true}

	d := NewDispatcher(st, notif, testLogger(t), time.Second)
	d.tick(context.Background())

	assert.False(t, st.isDispatched("evt-1"))
}

func TestDispatcher_SkipsTickWhilePreviousStillRunning(t *testing.T) {
	st := newFakeStore(nil)
	notif := &fakeNotification{}
	d := NewDispatcher(st, notif, testLogger(t), time.Second)

	require.True(t, d.running.TryLock())
	defer d.running.Unlock()

	d.tick(context.Background())
}
