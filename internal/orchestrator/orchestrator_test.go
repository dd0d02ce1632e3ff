package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-orchestrator/internal/logger"
	"order-orchestrator/internal/models"
	"order-orchestrator/internal/ordererr"
	"order-orchestrator/internal/store"
)

// --- fakes ---

type fakeCatalog struct {
	event *models.CatalogEvent
	err   error
}

func (f *fakeCatalog) GetEvent(ctx context.Context, eventID int64) (*models.CatalogEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

type fakeSeating struct {
	seats           []models.Seat
	reserveSuccess  bool
	reserveErr      error
	allocateErr     error
	releaseCalls    int
	allocateCalls   int
	mu              sync.Mutex
}

func (f *fakeSeating) GetSeats(ctx context.Context, eventID int64) ([]models.Seat, error) {
	return f.seats, nil
}

func (f *fakeSeating) ReserveSeats(ctx context.Context, req models.ReserveSeatsRequest) (*models.ReserveSeatsResponse, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	return &models.ReserveSeatsResponse{Success: f.reserveSuccess, ReservedSeats: req.SeatIDs}, nil
}

func (f *fakeSeating) AllocateSeats(ctx context.Context, req models.AllocateSeatsRequest) error {
	f.mu.Lock()
	f.allocateCalls++
	f.mu.Unlock()
	return f.allocateErr
}

func (f *fakeSeating) ReleaseSeats(ctx context.Context, req models.ReleaseSeatsRequest) error {
	f.mu.Lock()
	f.releaseCalls++
	f.mu.Unlock()
	return nil
}

type fakePayment struct {
	chargeResp *models.ChargeResponse
	chargeErr  error
	refundResp *models.RefundResponse
	refundErr  error
}

func (f *fakePayment) Charge(ctx context.Context, req models.ChargeRequest) (*models.ChargeResponse, error) {
	return f.chargeResp, f.chargeErr
}

func (f *fakePayment) Refund(ctx context.Context, req models.RefundRequest) (*models.RefundResponse, error) {
	return f.refundResp, f.refundErr
}

// fakeStore keeps everything in memory, enforcing the idempotency-key
// uniqueness invariant the real unique index provides.
type fakeStore struct {
	mu           sync.Mutex
	orders       map[int64]*models.Order
	ordersByIdem map[string]int64
	tickets      map[int64][]models.Ticket
	outbox       []models.OutboxEvent
	nextOrderID  int64
	nextTicketID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:       map[int64]*models.Order{},
		ordersByIdem: map[string]int64{},
		tickets:      map[int64][]models.Ticket{},
	}
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &fakeTx{s: s})
}

func (s *fakeStore) FindOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, errors.New("not found")
	}
	copy := *o
	return &copy, nil
}

func (s *fakeStore) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ordersByIdem[key]
	if !ok {
		return nil, errors.New("not found")
	}
	copy := *s.orders[id]
	return &copy, nil
}

func (s *fakeStore) FindOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return nil, nil
}

func (s *fakeStore) FindOrdersByEvent(ctx context.Context, eventID int64) ([]models.Order, error) {
	return nil, nil
}

func (s *fakeStore) FindConfirmedOrdersByEvent(ctx context.Context, eventID int64) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.EventID == eventID && o.Status == models.OrderStatusConfirmed {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeStore) ListOrders(ctx context.Context, page, pageSize int) ([]models.Order, int, error) {
	return nil, 0, nil
}

func (s *fakeStore) CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int64, float64, error) {
	return nil, 0, nil
}

func (s *fakeStore) FindTicketByID(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) FindTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Ticket{}, s.tickets[orderID]...), nil
}

func (s *fakeStore) FindTicketsByEvent(ctx context.Context, eventID int64) ([]models.Ticket, error) {
	return nil, nil
}

func (s *fakeStore) FetchUndispatchedEvents(ctx context.Context) ([]models.OutboxEvent, error) {
	return nil, nil
}

func (s *fakeStore) MarkDispatched(ctx context.Context, id string) error { return nil }

type fakeTx struct{ s *fakeStore }

func (t *fakeTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if order.IdempotencyKey != "" {
		if _, exists := t.s.ordersByIdem[order.IdempotencyKey]; exists {
			return errors.New("duplicate idempotency key")
		}
	}
	t.s.nextOrderID++
	order.OrderID = t.s.nextOrderID
	stored := *order
	t.s.orders[order.OrderID] = &stored
	if order.IdempotencyKey != "" {
		t.s.ordersByIdem[order.IdempotencyKey] = order.OrderID
	}
	return nil
}

func (t *fakeTx) UpdateOrder(ctx context.Context, order *models.Order) error {
	if _, ok := t.s.orders[order.OrderID]; !ok {
		return errors.New("not found")
	}
	stored := *order
	t.s.orders[order.OrderID] = &stored
	return nil
}

func (t *fakeTx) InsertTickets(ctx context.Context, tickets []models.Ticket) error {
	for i := range tickets {
		t.s.nextTicketID++
		tickets[i].TicketID = t.s.nextTicketID
	}
	if len(tickets) > 0 {
		orderID := tickets[0].OrderID
		t.s.tickets[orderID] = append(t.s.tickets[orderID], tickets...)
	}
	return nil
}

func (t *fakeTx) UpdateTicketQRCode(ctx context.Context, ticketID int64, qrCode []byte) error {
	for orderID, tickets := range t.s.tickets {
		for i := range tickets {
			if tickets[i].TicketID == ticketID {
				t.s.tickets[orderID][i].QRCode = qrCode
				return nil
			}
		}
	}
	return errors.New("ticket not found")
}

func (t *fakeTx) InsertOutboxEvent(ctx context.Context, event *models.OutboxEvent) error {
	t.s.outbox = append(t.s.outbox, *event)
	return nil
}

func (t *fakeTx) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	id, ok := t.s.ordersByIdem[key]
	if !ok {
		return nil, errors.New("not found")
	}
	copy := *t.s.orders[id]
	return &copy, nil
}

func (t *fakeTx) FindTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	return append([]models.Ticket{}, t.s.tickets[orderID]...), nil
}

func onSaleEvent() *models.CatalogEvent {
	return &models.CatalogEvent{EventID: 1, Title: "Test Show", Status: models.EventStatusOnSale}
}

func twoSeats() []models.Seat {
	return []models.Seat{
		{SeatID: "A1", Price: 49.99, EventID: 1},
		{SeatID: "A2", Price: 49.99, EventID: 1},
	}
}

func TestCreateOrder_HappyPath(t *testing.T) {
	st := newFakeStore()
	seating := &fakeSeating{seats: twoSeats(), reserveSuccess: true}
	payment := &fakePayment{chargeResp: &models.ChargeResponse{Success: true, Status: models.ChargeStatusSuccess}}
	orch := New(st, &fakeCatalog{event: onSaleEvent()}, seating, payment, nil, nil, logger.New(t.TempDir()), Config{})

	resp, err := orch.CreateOrder(context.Background(), models.OrderRequest{
		UserID: "u1", EventID: 1, SeatIDs: []string{"A1", "A2"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, resp.Status)
	assert.Equal(t, models.PaymentStatusSuccess, resp.PaymentStatus)
	assert.Len(t, resp.Tickets, 2)
	assert.InDelta(t, 104.98, resp.OrderTotal, 0.001, "99.98 subtotal + 5%% tax rounds to 104.98")
	assert.Equal(t, 1, seating.allocateCalls)
}

func TestCreateOrder_IdempotentReplayReturnsSameOrder(t *testing.T) {
	st := newFakeStore()
	seating := &fakeSeating{seats: twoSeats(), reserveSuccess: true}
	payment := &fakePayment{chargeResp: &models.ChargeResponse{Success: true, Status: models.ChargeStatusSuccess}}
	orch := New(st, &fakeCatalog{event: onSaleEvent()}, seating, payment, nil, nil, logger.New(t.TempDir()), Config{})

	req := models.OrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1", "A2"}, IdempotencyKey: "req-1"}
	first, err := orch.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	second, err := orch.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, 1, seating.allocateCalls, "a replayed request must not re-run fulfillment")
}

func TestCreateOrder_EventNotOnSale(t *testing.T) {
	st := newFakeStore()
	event := onSaleEvent()
	event.Status = models.EventStatusSoldOut
	orch := New(st, &fakeCatalog{event: event}, &fakeSeating{}, &fakePayment{}, nil, nil, logger.New(t.TempDir()), Config{})

	_, err := orch.CreateOrder(context.Background(), models.OrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1"}})
	require.Error(t, err)
}

func TestCreateOrder_SeatReservationFailureReturnsSeatUnavailable(t *testing.T) {
	st := newFakeStore()
	seating := &fakeSeating{seats: twoSeats(), reserveSuccess: false}
	orch := New(st, &fakeCatalog{event: onSaleEvent()}, seating, &fakePayment{}, nil, nil, logger.New(t.TempDir()), Config{})

	_, err := orch.CreateOrder(context.Background(), models.OrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1", "A2"}})
	require.Error(t, err)
	assert.Equal(t, ordererr.KindSeatUnavailable, ordererr.KindOf(err))
	assert.Equal(t, 0, len(st.orders))
}

func TestCreateOrder_PaymentFailureCancelsAndReleasesSeats(t *testing.T) {
	st := newFakeStore()
	seating := &fakeSeating{seats: twoSeats(), reserveSuccess: true}
	payment := &fakePayment{chargeResp: &models.ChargeResponse{Success: false, Status: models.ChargeStatusFailed, Message: "card declined"}}
	orch := New(st, &fakeCatalog{event: onSaleEvent()}, seating, payment, nil, nil, logger.New(t.TempDir()), Config{})

	_, err := orch.CreateOrder(context.Background(), models.OrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1", "A2"}})
	require.Error(t, err)
	assert.Equal(t, 1, seating.releaseCalls)

	for _, o := range st.orders {
		assert.Equal(t, models.OrderStatusCancelled, o.Status)
		assert.Equal(t, models.PaymentStatusFailed, o.PaymentStatus)
	}
}

func TestCreateOrder_AllocationFailureTriggersRefundCompensation(t *testing.T) {
	st := newFakeStore()
	seating := &fakeSeating{seats: twoSeats(), reserveSuccess: true, allocateErr: errors.New("seat map changed")}
	payment := &fakePayment{
		chargeResp: &models.ChargeResponse{Success: true, Status: models.ChargeStatusSuccess},
		refundResp: &models.RefundResponse{Success: true},
	}
	orch := New(st, &fakeCatalog{event: onSaleEvent()}, seating, payment, nil, nil, logger.New(t.TempDir()), Config{})

	_, err := orch.CreateOrder(context.Background(), models.OrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1", "A2"}})
	require.Error(t, err)

	for _, o := range st.orders {
		assert.Equal(t, models.OrderStatusRefunded, o.Status)
		assert.Equal(t, models.PaymentStatusRefunded, o.PaymentStatus)
	}
}

func TestCreateOrder_AllocationAndRefundBothFailReachesTerminalSink(t *testing.T) {
	st := newFakeStore()
	seating := &fakeSeating{seats: twoSeats(), reserveSuccess: true, allocateErr: errors.New("seat map changed")}
	payment := &fakePayment{
		chargeResp: &models.ChargeResponse{Success: true, Status: models.ChargeStatusSuccess},
		refundErr:  errors.New("payment provider down"),
	}
	orch := New(st, &fakeCatalog{event: onSaleEvent()}, seating, payment, nil, nil, logger.New(t.TempDir()), Config{})

	_, err := orch.CreateOrder(context.Background(), models.OrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1", "A2"}})
	require.Error(t, err)

	for _, o := range st.orders {
		assert.Equal(t, models.OrderStatusPaymentCompletedFulfillFailed, o.Status)
	}
}

func TestCreateOrder_RejectsEmptyAndDuplicateSeatIDs(t *testing.T) {
	st := newFakeStore()
	orch := New(st, &fakeCatalog{event: onSaleEvent()}, &fakeSeating{}, &fakePayment{}, nil, nil, logger.New(t.TempDir()), Config{})

	_, err := orch.CreateOrder(context.Background(), models.OrderRequest{UserID: "u1", EventID: 1, SeatIDs: nil})
	require.Error(t, err)

	_, err = orch.CreateOrder(context.Background(), models.OrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1", "A1"}})
	require.Error(t, err)
}

func TestCancelOrder_AlreadyCancelledIsConflict(t *testing.T) {
	st := newFakeStore()
	st.orders[1] = &models.Order{OrderID: 1, Status: models.OrderStatusCancelled, PaymentStatus: models.PaymentStatusFailed}
	orch := New(st, &fakeCatalog{}, &fakeSeating{}, &fakePayment{}, nil, nil, logger.New(t.TempDir()), Config{})

	_, err := orch.CancelOrder(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, ordererr.KindConflict, ordererr.KindOf(err))
}

func TestCancelOrder_RefundsSuccessfulPayment(t *testing.T) {
	st := newFakeStore()
	st.orders[1] = &models.Order{OrderID: 1, EventID: 1, Status: models.OrderStatusConfirmed, PaymentStatus: models.PaymentStatusSuccess, OrderTotal: 10499}
	payment := &fakePayment{refundResp: &models.RefundResponse{Success: true}}
	orch := New(st, &fakeCatalog{}, &fakeSeating{}, payment, nil, nil, logger.New(t.TempDir()), Config{})

	resp, err := orch.CancelOrder(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, resp.Status)
}

func TestCancelOrder_IsIdempotentOnSecondCall(t *testing.T) {
	st := newFakeStore()
	st.orders[1] = &models.Order{OrderID: 1, EventID: 1, Status: models.OrderStatusConfirmed, PaymentStatus: models.PaymentStatusSuccess, OrderTotal: 10499}
	payment := &fakePayment{refundResp: &models.RefundResponse{Success: true}}
	orch := New(st, &fakeCatalog{}, &fakeSeating{}, payment, nil, nil, logger.New(t.TempDir()), Config{})

	_, err := orch.CancelOrder(context.Background(), 1)
	require.NoError(t, err)

	_, err = orch.CancelOrder(context.Background(), 1)
	require.Error(t, err, "cancelling an already-refunded order must be a Conflict, not a second refund")
	assert.Equal(t, ordererr.KindConflict, ordererr.KindOf(err))
}

func TestHandleEventCancelled_RefundsEveryConfirmedOrder(t *testing.T) {
	st := newFakeStore()
	st.orders[1] = &models.Order{OrderID: 1, EventID: 7, Status: models.OrderStatusConfirmed, PaymentStatus: models.PaymentStatusSuccess, OrderTotal: 5000}
	st.orders[2] = &models.Order{OrderID: 2, EventID: 7, Status: models.OrderStatusConfirmed, PaymentStatus: models.PaymentStatusSuccess, OrderTotal: 7500}
	payment := &fakePayment{refundResp: &models.RefundResponse{Success: true}}
	orch := New(st, &fakeCatalog{}, &fakeSeating{}, payment, nil, nil, logger.New(t.TempDir()), Config{})

	require.NoError(t, orch.HandleEventCancelled(context.Background(), 7, "venue flooded"))

	for _, o := range st.orders {
		assert.Equal(t, models.OrderStatusRefunded, o.Status)
	}
}

func TestHandleEventCancelled_RunningTwiceIsSafe(t *testing.T) {
	st := newFakeStore()
	st.orders[1] = &models.Order{OrderID: 1, EventID: 7, Status: models.OrderStatusConfirmed, PaymentStatus: models.PaymentStatusSuccess, OrderTotal: 5000}
	payment := &fakePayment{refundResp: &models.RefundResponse{Success: true}}
	orch := New(st, &fakeCatalog{}, &fakeSeating{}, payment, nil, nil, logger.New(t.TempDir()), Config{})

	require.NoError(t, orch.HandleEventCancelled(context.Background(), 7, "venue flooded"))
	require.NoError(t, orch.HandleEventCancelled(context.Background(), 7, "venue flooded"))
}

func TestMoneyRoundingBoundaries(t *testing.T) {
	// exercised through CreateOrder to cover the saga's arithmetic path
	cases := []struct {
		price float64
		want  float64
	}{
		{99.99, 104.99},
		{100.00, 105.00},
	}
	for _, c := range cases {
		st := newFakeStore()
		seating := &fakeSeating{seats: []models.Seat{{SeatID: "A1", Price: c.price, EventID: 1}}, reserveSuccess: true}
		payment := &fakePayment{chargeResp: &models.ChargeResponse{Success: true, Status: models.ChargeStatusSuccess}}
		orch := New(st, &fakeCatalog{event: onSaleEvent()}, seating, payment, nil, nil, logger.New(t.TempDir()), Config{})

		resp, err := orch.CreateOrder(context.Background(), models.OrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1"}})
		require.NoError(t, err)
		assert.InDelta(t, c.want, resp.OrderTotal, 0.001)
	}
}
