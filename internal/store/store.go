// Package store is the durable persistence boundary for orders,
// tickets, and outbox entries. The Orchestrator depends only on the
// Store interface below; BunStore is the bun-backed implementation
// wired against either Postgres (production) or SQLite (tests).
package store

import (
	"context"

	"order-orchestrator/internal/models"
)

// Store offers per-entity operations plus a transactional scope so an
// Order mutation and its OutboxEvent append commit together or not at
// all, per spec §4.5.
type Store interface {
	// WithTx runs fn inside a single database transaction. Any error
	// returned by fn rolls the transaction back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	FindOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	FindOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	FindOrdersByEvent(ctx context.Context, eventID int64) ([]models.Order, error)
	FindConfirmedOrdersByEvent(ctx context.Context, eventID int64) ([]models.Order, error)
	ListOrders(ctx context.Context, page, pageSize int) ([]models.Order, int, error)
	CountOrdersByStatus(ctx context.Context) (map[models.OrderStatus]int64, float64, error)

	FindTicketByID(ctx context.Context, ticketID int64) (*models.Ticket, error)
	FindTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error)
	FindTicketsByEvent(ctx context.Context, eventID int64) ([]models.Ticket, error)

	FetchUndispatchedEvents(ctx context.Context) ([]models.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string) error
}

// Tx is the subset of Store operations valid inside WithTx, plus the
// mutating operations the Orchestrator performs transactionally.
type Tx interface {
	InsertOrder(ctx context.Context, order *models.Order) error
	UpdateOrder(ctx context.Context, order *models.Order) error
	InsertTickets(ctx context.Context, tickets []models.Ticket) error
	UpdateTicketQRCode(ctx context.Context, ticketID int64, qrCode []byte) error
	InsertOutboxEvent(ctx context.Context, event *models.OutboxEvent) error
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	FindTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error)
}
