package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket is issued in bulk when an Order enters CONFIRMED and
// cascade-deletes with its Order.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID  int64  `bun:"ticket_id,pk,autoincrement" json:"ticket_id"`
	OrderID   int64  `bun:"order_id,notnull" json:"order_id"`
	EventID   int64  `bun:"event_id,notnull" json:"event_id"`
	SeatID    string `bun:"seat_id,notnull" json:"seat_id"`
	PricePaid int64  `bun:"price_paid,notnull" json:"price_paid"` // cents
	QRCode    []byte `bun:"qr_code" json:"-"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

type TicketResponse struct {
	TicketID  int64     `json:"ticket_id"`
	OrderID   int64     `json:"order_id"`
	EventID   int64     `json:"event_id"`
	SeatID    string    `json:"seat_id"`
	PricePaid float64   `json:"price_paid"`
	QRCode    []byte    `json:"qr_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
