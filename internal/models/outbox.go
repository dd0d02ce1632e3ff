package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventType string

const (
	EventTypeOrderConfirmed EventType = "OrderConfirmed"
	EventTypeOrderCancelled EventType = "OrderCancelled"
	EventTypeOrderRefunded  EventType = "OrderRefunded"
)

// OutboxEvent is appended atomically with the order mutation that
// caused it and later drained by the dispatcher.
type OutboxEvent struct {
	bun.BaseModel `bun:"table:outbox_events"`

	ID            string    `bun:"id,pk" json:"id"`
	AggregateType string    `bun:"aggregate_type,notnull" json:"aggregate_type"`
	AggregateID   string    `bun:"aggregate_id,notnull" json:"aggregate_id"`
	EventType     EventType `bun:"event_type,notnull" json:"event_type"`
	Payload       []byte    `bun:"payload,notnull" json:"payload"`
	CorrelationID string    `bun:"correlation_id,notnull" json:"correlation_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	Dispatched    bool      `bun:"dispatched,notnull" json:"dispatched"`
}

// OrderConfirmedPayload is the JSON body of an OrderConfirmed OutboxEvent.
type OrderConfirmedPayload struct {
	OrderID       int64     `json:"order_id"`
	UserID        string    `json:"user_id"`
	EventID       int64     `json:"event_id"`
	EventTitle    string    `json:"event_title"`
	OrderTotal    float64   `json:"order_total"`
	SeatIDs       []string  `json:"seat_ids"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
	CorrelationID string    `json:"correlation_id"`
}

// OrderCancelledPayload is the JSON body of an OrderCancelled OutboxEvent.
type OrderCancelledPayload struct {
	OrderID       int64     `json:"order_id"`
	UserID        string    `json:"user_id"`
	EventID       int64     `json:"event_id"`
	Reason        string    `json:"reason"`
	CancelledAt   time.Time `json:"cancelled_at"`
	CorrelationID string    `json:"correlation_id"`
}

// OrderRefundedPayload is the JSON body of an OrderRefunded OutboxEvent.
type OrderRefundedPayload struct {
	OrderID       int64     `json:"order_id"`
	UserID        string    `json:"user_id"`
	EventID       int64     `json:"event_id"`
	RefundedTotal float64   `json:"refunded_total"`
	RefundedAt    time.Time `json:"refunded_at"`
	CorrelationID string    `json:"correlation_id"`
}
