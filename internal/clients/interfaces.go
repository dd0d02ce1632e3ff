// Package clients holds the narrow capability interfaces the
// Orchestrator is wired against, and the concrete HTTP/Stripe/Kafka
// adapters that implement them in production.
package clients

import (
	"context"

	"order-orchestrator/internal/models"
)

// Catalog validates that an event exists and is sellable.
type Catalog interface {
	GetEvent(ctx context.Context, eventID int64) (*models.CatalogEvent, error)
}

// Seating owns the lifecycle of a seat from held to reserved to
// allocated. Four narrow operations, per spec §4.2.
type Seating interface {
	GetSeats(ctx context.Context, eventID int64) ([]models.Seat, error)
	ReserveSeats(ctx context.Context, req models.ReserveSeatsRequest) (*models.ReserveSeatsResponse, error)
	AllocateSeats(ctx context.Context, req models.AllocateSeatsRequest) error
	ReleaseSeats(ctx context.Context, req models.ReleaseSeatsRequest) error
}

// Payment charges and refunds an order. Two operations, per spec §4.2.
type Payment interface {
	Charge(ctx context.Context, req models.ChargeRequest) (*models.ChargeResponse, error)
	Refund(ctx context.Context, req models.RefundRequest) (*models.RefundResponse, error)
}

// Notification fans outbox events out to downstream consumers.
type Notification interface {
	SendEvent(ctx context.Context, event models.OutboxEvent) error
}
