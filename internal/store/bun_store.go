package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"

	"order-orchestrator/internal/models"
)

// BunStore implements Store on top of a bun.DB. The same code path
// runs against pgdialect+pgdriver in production and sqlitedialect
// +sqliteshim in tests; only the DB construction differs.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, btx bun.Tx) error {
		return fn(ctx, &bunTx{tx: btx})
	})
}

func (s *BunStore) FindOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.NewSelect().Model(&order).Where("order_id = ?", orderID).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *BunStore) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.NewSelect().Model(&order).Where("idempotency_key = ?", key).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *BunStore) FindOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.NewSelect().Model(&orders).Where("user_id = ?", userID).Order("created_at DESC").Scan(ctx)
	return orders, err
}

func (s *BunStore) FindOrdersByEvent(ctx context.Context, eventID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.NewSelect().Model(&orders).Where("event_id = ?", eventID).Order("created_at DESC").Scan(ctx)
	return orders, err
}

func (s *BunStore) FindConfirmedOrdersByEvent(ctx context.Context, eventID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.NewSelect().Model(&orders).
		Where("event_id = ?", eventID).
		Where("status = ?", models.OrderStatusConfirmed).
		Scan(ctx)
	return orders, err
}

func (s *BunStore) ListOrders(ctx context.Context, page, pageSize int) ([]models.Order, int, error) {
	var orders []models.Order
	count, err := s.db.NewSelect().Model(&orders).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return orders, count, nil
}

func (s *BunStore) CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int64, float64, error) {
	var rows []struct {
		Status models.OrderStatus `bun:"status"`
		Count  int64               `bun:"count"`
	}
	err := s.db.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("status").
		ColumnExpr("count(*) AS count").
		GroupExpr("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, 0, err
	}

	counts := make(map[models.OrderStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}

	var totalRevenue sql.NullFloat64
	err = s.db.NewSelect().
		Model((*models.Order)(nil)).
		ColumnExpr("sum(order_total) AS total_revenue").
		Where("status IN (?)", bun.In([]models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusRefunded})).
		Scan(ctx, &totalRevenue)
	if err != nil {
		return nil, 0, err
	}

	return counts, totalRevenue.Float64 / 100, nil
}

func (s *BunStore) FindTicketByID(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.NewSelect().Model(&ticket).Where("ticket_id = ?", ticketID).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *BunStore) FindTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.NewSelect().Model(&tickets).Where("order_id = ?", orderID).Scan(ctx)
	return tickets, err
}

func (s *BunStore) FindTicketsByEvent(ctx context.Context, eventID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.NewSelect().Model(&tickets).Where("event_id = ?", eventID).Scan(ctx)
	return tickets, err
}

func (s *BunStore) FetchUndispatchedEvents(ctx context.Context) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := s.db.NewSelect().Model(&events).Where("dispatched = ?", false).Order("created_at ASC").Scan(ctx)
	return events, err
}

func (s *BunStore) MarkDispatched(ctx context.Context, id string) error {
	_, err := s.db.NewUpdate().
		Model((*models.OutboxEvent)(nil)).
		Set("dispatched = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

type bunTx struct {
	tx bun.Tx
}

func (t *bunTx) InsertOrder(ctx context.Context, order *models.Order) error {
	_, err := t.tx.NewInsert().Model(order).Returning("order_id").Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *bunTx) UpdateOrder(ctx context.Context, order *models.Order) error {
	_, err := t.tx.NewUpdate().
		Model(order).
		Column("status", "payment_status", "order_total", "payment_id").
		Where("order_id = ?", order.OrderID).
		Exec(ctx)
	return err
}

func (t *bunTx) InsertTickets(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	_, err := t.tx.NewInsert().Model(&tickets).Exec(ctx)
	return err
}

func (t *bunTx) UpdateTicketQRCode(ctx context.Context, ticketID int64, qrCode []byte) error {
	_, err := t.tx.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("qr_code = ?", qrCode).
		Where("ticket_id = ?", ticketID).
		Exec(ctx)
	return err
}

func (t *bunTx) InsertOutboxEvent(ctx context.Context, event *models.OutboxEvent) error {
	_, err := t.tx.NewInsert().Model(event).Exec(ctx)
	return err
}

func (t *bunTx) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := t.tx.NewSelect().Model(&order).Where("idempotency_key = ?", key).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (t *bunTx) FindTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := t.tx.NewSelect().Model(&tickets).Where("order_id = ?", orderID).Scan(ctx)
	return tickets, err
}
