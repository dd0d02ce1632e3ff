package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"order-orchestrator/internal/models"
)

func newTestStore(t *testing.T) *BunStore {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, CreateSchema(context.Background(), db))
	return NewBunStore(db)
}

func TestBunStore_InsertAndFindOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	order := &models.Order{
		UserID:         "user-1",
		EventID:        1,
		Status:         models.OrderStatusCreated,
		PaymentStatus:  models.PaymentStatusPending,
		OrderTotal:     1050,
		IdempotencyKey: "idem-1",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertOrder(ctx, order)
	}))
	require.NotZero(t, order.OrderID)

	found, err := st.FindOrderByID(ctx, order.OrderID)
	require.NoError(t, err)
	require.Equal(t, "user-1", found.UserID)

	byKey, err := st.FindOrderByIdempotencyKey(ctx, "idem-1")
	require.NoError(t, err)
	require.Equal(t, order.OrderID, byKey.OrderID)
}

func TestBunStore_IdempotencyKeyUniqueAmongNonNull(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := &models.Order{UserID: "u1", EventID: 1, Status: models.OrderStatusCreated, PaymentStatus: models.PaymentStatusPending, OrderTotal: 100, IdempotencyKey: "dup", CreatedAt: time.Now().UTC()}
	second := &models.Order{UserID: "u2", EventID: 1, Status: models.OrderStatusCreated, PaymentStatus: models.PaymentStatusPending, OrderTotal: 200, IdempotencyKey: "dup", CreatedAt: time.Now().UTC()}

	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertOrder(ctx, first)
	}))
	err := st.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertOrder(ctx, second)
	})
	require.Error(t, err, "inserting a second order under the same idempotency key must violate the unique index")
}

func TestBunStore_InsertTicketsAndOutboxEventCommitTogether(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	order := &models.Order{UserID: "u1", EventID: 1, Status: models.OrderStatusCreated, PaymentStatus: models.PaymentStatusPending, OrderTotal: 100, CreatedAt: time.Now().UTC()}
	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertOrder(ctx, order)
	}))

	tickets := []models.Ticket{
		{OrderID: order.OrderID, EventID: 1, SeatID: "A1", PricePaid: 100, CreatedAt: time.Now().UTC()},
	}
	event := &models.OutboxEvent{ID: "evt-1", AggregateType: "Order", AggregateID: "1", EventType: models.EventTypeOrderConfirmed, Payload: []byte(`{}`), CreatedAt: time.Now().UTC()}

	require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.InsertTickets(ctx, tickets); err != nil {
			return err
		}
		return tx.InsertOutboxEvent(ctx, event)
	}))

	found, err := st.FindTicketsByOrder(ctx, order.OrderID)
	require.NoError(t, err)
	require.Len(t, found, 1)

	undispatched, err := st.FetchUndispatchedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, undispatched, 1)

	require.NoError(t, st.MarkDispatched(ctx, "evt-1"))
	undispatched, err = st.FetchUndispatchedEvents(ctx)
	require.NoError(t, err)
	require.Empty(t, undispatched)
}

func TestBunStore_ListOrdersPagination(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		order := &models.Order{UserID: "u1", EventID: 1, Status: models.OrderStatusCreated, PaymentStatus: models.PaymentStatusPending, OrderTotal: int64(100 * (i + 1)), CreatedAt: time.Now().UTC()}
		require.NoError(t, st.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.InsertOrder(ctx, order)
		}))
	}

	page1, total, err := st.ListOrders(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page1, 2)

	page3, _, err := st.ListOrders(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
}
