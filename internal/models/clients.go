package models

import "time"

// EventStatus mirrors the catalog's lifecycle for a sellable event.
type EventStatus string

const (
	EventStatusOnSale   EventStatus = "ON_SALE"
	EventStatusSoldOut  EventStatus = "SOLD_OUT"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// CatalogEvent is the shape Catalog.GetEvent returns.
type CatalogEvent struct {
	EventID   int64       `json:"event_id"`
	Title     string      `json:"title"`
	Status    EventStatus `json:"status"`
	EventDate time.Time   `json:"event_date"`
	VenueID   int64       `json:"venue_id"`
	VenueName string      `json:"venue_name"`
	City      string      `json:"city"`
	BasePrice float64     `json:"base_price"`
}

// Seat is one row of Seating.GetSeats.
type Seat struct {
	SeatID     string  `json:"seat_id"`
	Section    string  `json:"section"`
	Row        string  `json:"row"`
	SeatNumber int     `json:"seat_number"`
	Price      float64 `json:"price"`
	EventID    int64   `json:"event_id"`
}

type ReserveSeatsRequest struct {
	EventID    int64    `json:"event_id"`
	SeatIDs    []string `json:"seat_ids"`
	UserID     string   `json:"user_id"`
	TTLSeconds int      `json:"ttl_seconds"`
}

type ReserveSeatsResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	ReservedSeats []string `json:"reserved_seats,omitempty"`
}

type AllocateSeatsRequest struct {
	EventID int64    `json:"event_id"`
	UserID  string   `json:"user_id"`
	SeatIDs []string `json:"seat_ids"`
}

type ReleaseSeatsRequest struct {
	EventID int64    `json:"event_id"`
	UserID  string   `json:"user_id"`
	SeatIDs []string `json:"seat_ids"`
}

// ChargeRequest is Payment.Charge's input. Amount is in major units on
// the wire; the client converts to/from internal/money.Cents at the
// boundary.
type ChargeRequest struct {
	OrderID        int64   `json:"order_id"`
	UserID         string  `json:"user_id"`
	Amount         float64 `json:"amount"`
	IdempotencyKey string  `json:"idempotency_key"`
}

type ChargeStatus string

const (
	ChargeStatusSuccess ChargeStatus = "SUCCESS"
	ChargeStatusFailed  ChargeStatus = "FAILED"
)

type ChargeResponse struct {
	Success               bool         `json:"success"`
	PaymentID             string       `json:"payment_id,omitempty"`
	Status                ChargeStatus `json:"status"`
	Message               string       `json:"message"`
	TransactionReference  string       `json:"transaction_reference,omitempty"`
}

type RefundRequest struct {
	OrderID   int64   `json:"order_id"`
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

type RefundResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EventCancelledWebhook is the inbound body of POST /api/webhooks/event-cancelled.
type EventCancelledWebhook struct {
	EventID     int64     `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason"`
}
