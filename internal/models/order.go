// Package models holds the persisted entities and wire DTOs the
// orchestrator, store, and HTTP facade share.
package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderStatusCreated                        OrderStatus = "CREATED"
	OrderStatusConfirmed                      OrderStatus = "CONFIRMED"
	OrderStatusCancelled                      OrderStatus = "CANCELLED"
	OrderStatusRefunded                       OrderStatus = "REFUNDED"
	OrderStatusPaymentCompletedFulfillFailed  OrderStatus = "PAYMENT_COMPLETED_BUT_FULFILLMENT_FAILED"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Order is the durable record the Orchestrator exclusively mutates.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID        int64         `bun:"order_id,pk,autoincrement" json:"order_id"`
	UserID         string        `bun:"user_id,notnull" json:"user_id"`
	EventID        int64         `bun:"event_id,notnull" json:"event_id"`
	Status         OrderStatus   `bun:"status,notnull" json:"status"`
	PaymentStatus  PaymentStatus `bun:"payment_status,notnull" json:"payment_status"`
	OrderTotal     int64         `bun:"order_total,notnull" json:"order_total"` // cents, see internal/money
	IdempotencyKey string        `bun:"idempotency_key,nullzero" json:"idempotency_key,omitempty"`
	PaymentID      string        `bun:"payment_id,nullzero" json:"-"` // Stripe PaymentIntent id, set once Charge succeeds
	CreatedAt      time.Time     `bun:"created_at,notnull" json:"created_at"`
}

// OrderRequest is the inbound shape for CreateOrder.
type OrderRequest struct {
	UserID         string   `json:"user_id"`
	EventID        int64    `json:"event_id"`
	SeatIDs        []string `json:"seat_ids"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

// OrderResponse is the outbound snapshot of an Order plus its Tickets.
type OrderResponse struct {
	OrderID        int64            `json:"order_id"`
	UserID         string           `json:"user_id"`
	EventID        int64            `json:"event_id"`
	Status         OrderStatus      `json:"status"`
	PaymentStatus  PaymentStatus    `json:"payment_status"`
	OrderTotal     float64          `json:"order_total"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	Tickets        []TicketResponse `json:"tickets,omitempty"`
}

// Pagination mirrors the clamped page/pageSize the facade accepts.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

type OrderListResponse struct {
	Data       []OrderResponse `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// OrderStatistics backs GET /api/v1/orders/statistics; a feature the
// distilled spec leaves implicit in its HTTP table but does not shape,
// so the aggregate is kept intentionally small and derivable purely
// from the orders table.
type OrderStatistics struct {
	TotalOrders     int64   `json:"total_orders"`
	ConfirmedOrders int64   `json:"confirmed_orders"`
	CancelledOrders int64   `json:"cancelled_orders"`
	RefundedOrders  int64   `json:"refunded_orders"`
	TotalRevenue    float64 `json:"total_revenue"`
}
