package store

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"order-orchestrator/internal/models"
)

// CreateSchema creates the orders/tickets/outbox_events tables
// directly through bun, for the sqlite in-memory test store where
// running file-based golang-migrate migrations would be overkill.
// Production deployments use migrations.Runner instead.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []interface{}{
		(*models.Order)(nil),
		(*models.Ticket)(nil),
		(*models.OutboxEvent)(nil),
	}

	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_event_id ON orders (event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_idempotency_key ON orders (idempotency_key) WHERE idempotency_key IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_order_id ON tickets (order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_event_id ON tickets (event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_seat_id ON tickets (seat_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index %q: %w", idx, err)
		}
	}
	return nil
}
