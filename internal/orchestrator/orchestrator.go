// Package orchestrator is the saga engine: CreateOrder, CancelOrder,
// and HandleEventCancelled. It owns every Order/Ticket state
// transition and the outbox writes that accompany them, per spec §4.1.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"order-orchestrator/internal/clients"
	"order-orchestrator/internal/correlation"
	"order-orchestrator/internal/idempotency"
	"order-orchestrator/internal/logger"
	"order-orchestrator/internal/metrics"
	"order-orchestrator/internal/models"
	"order-orchestrator/internal/money"
	"order-orchestrator/internal/ordererr"
	"order-orchestrator/internal/store"
	"order-orchestrator/internal/ticketing"
)

// Config carries the tunables spec §6 enumerates as configuration.
type Config struct {
	ReservationTTLSeconds int
	TaxRate               float64
}

// Orchestrator wires the Store and the three outbound client
// capabilities into the saga described in spec §4.1-§4.3. idemLock is
// optional: when nil, idempotency relies solely on the store's unique
// index (acceptable for single-instance tests).
type Orchestrator struct {
	store    store.Store
	catalog  clients.Catalog
	seating  clients.Seating
	payment  clients.Payment
	qr       *ticketing.QRGenerator
	idemLock *idempotency.Lock
	log      *logger.Logger
	cfg      Config
}

func New(st store.Store, catalog clients.Catalog, seating clients.Seating, payment clients.Payment, qr *ticketing.QRGenerator, idemLock *idempotency.Lock, log *logger.Logger, cfg Config) *Orchestrator {
	if cfg.ReservationTTLSeconds <= 0 {
		cfg.ReservationTTLSeconds = 900
	}
	if cfg.TaxRate <= 0 {
		cfg.TaxRate = money.TaxRate
	}
	return &Orchestrator{store: st, catalog: catalog, seating: seating, payment: payment, qr: qr, idemLock: idemLock, log: log, cfg: cfg}
}

// CreateOrder runs the full saga described in spec §4.1.
func (o *Orchestrator) CreateOrder(ctx context.Context, req models.OrderRequest) (*models.OrderResponse, error) {
	correlationID, ctx := correlation.FromContext(ctx)
	clog := o.log.WithCorrelation(correlationID)

	if len(req.SeatIDs) == 0 {
		return nil, ordererr.New(ordererr.KindValidation, correlationID, "seat_ids must not be empty")
	}
	if hasDuplicates(req.SeatIDs) {
		return nil, ordererr.New(ordererr.KindValidation, correlationID, "seat_ids must not contain duplicates")
	}

	// Step 1: idempotency probe, optionally serialized by a short-lived
	// Redis lock so concurrent callers sharing a key invoke external
	// services at most once between them.
	if req.IdempotencyKey != "" {
		if snapshot, err := o.lookupByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
			return nil, err
		} else if snapshot != nil {
			return snapshot, nil
		}

		if o.idemLock != nil {
			release, acquired, err := o.idemLock.Acquire(ctx, req.IdempotencyKey, uuid.NewString())
			if err != nil {
				clog.Warn("ORDER", fmt.Sprintf("idempotency lock unavailable, proceeding without it: %v", err))
			} else if acquired {
				defer release(context.Background())
			} else {
				// Another request is already processing this key;
				// give it a moment to commit, then re-probe.
				time.Sleep(200 * time.Millisecond)
				if snapshot, err := o.lookupByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
					return nil, err
				} else if snapshot != nil {
					return snapshot, nil
				}
			}
		}
	}

	// Step 2: event validation.
	event, err := o.catalog.GetEvent(ctx, req.EventID)
	if err != nil {
		if err == clients.ErrNotFound {
			return nil, ordererr.New(ordererr.KindNotFound, correlationID, "event not found")
		}
		return nil, ordererr.Wrap(ordererr.KindUpstreamUnavailable, correlationID, "catalog service unavailable", err)
	}
	if event.Status != models.EventStatusOnSale {
		return nil, ordererr.New(ordererr.KindNotSellable, correlationID, fmt.Sprintf("event is %s, not sellable", event.Status))
	}

	// Step 3: seat validation.
	seats, err := o.seating.GetSeats(ctx, req.EventID)
	if err != nil {
		return nil, ordererr.Wrap(ordererr.KindUpstreamUnavailable, correlationID, "seating service unavailable", err)
	}
	seatByID := make(map[string]models.Seat, len(seats))
	for _, s := range seats {
		seatByID[s.SeatID] = s
	}
	prices := make([]float64, 0, len(req.SeatIDs))
	for _, id := range req.SeatIDs {
		seat, ok := seatByID[id]
		if !ok {
			return nil, ordererr.New(ordererr.KindNotFound, correlationID, fmt.Sprintf("seat %s not found", id))
		}
		prices = append(prices, seat.Price)
	}

	// Step 4: seat reservation.
	reserveResp, err := o.seating.ReserveSeats(ctx, models.ReserveSeatsRequest{
		EventID:    req.EventID,
		SeatIDs:    req.SeatIDs,
		UserID:     req.UserID,
		TTLSeconds: o.cfg.ReservationTTLSeconds,
	})
	if err != nil || !reserveResp.Success {
		metrics.SeatReservationsFailedTotal.Inc()
		msg := "seat reservation failed"
		if reserveResp != nil && reserveResp.Message != "" {
			msg = reserveResp.Message
		}
		return nil, ordererr.New(ordererr.KindSeatUnavailable, correlationID, msg)
	}

	// Step 5: total computation.
	subtotal := money.SumSeatPrices(prices)
	_, _, total := money.TotalAt(subtotal, o.cfg.TaxRate)

	// Step 6: order insert.
	order := &models.Order{
		UserID:         req.UserID,
		EventID:        req.EventID,
		Status:         models.OrderStatusCreated,
		PaymentStatus:  models.PaymentStatusPending,
		OrderTotal:     int64(total),
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertOrder(ctx, order)
	}); err != nil {
		// A concurrent insert under the same idempotency key lost the
		// unique-index race; re-read the winner's snapshot instead of
		// surfacing a conflict to this caller.
		if req.IdempotencyKey != "" {
			if snapshot, lookupErr := o.lookupByIdempotencyKey(ctx, req.IdempotencyKey); lookupErr == nil && snapshot != nil {
				return snapshot, nil
			}
		}
		o.releaseSeatsBestEffort(ctx, clog, req.EventID, req.UserID, req.SeatIDs)
		return nil, ordererr.Wrap(ordererr.KindConflict, correlationID, "failed to persist order", err)
	}

	metrics.OrdersTotal.Inc()

	// Step 7: payment.
	chargeIdempotencyKey := req.IdempotencyKey
	if chargeIdempotencyKey == "" {
		chargeIdempotencyKey = uuid.NewString()
	}
	chargeResp, chargeErr := o.payment.Charge(ctx, models.ChargeRequest{
		OrderID:        order.OrderID,
		UserID:         req.UserID,
		Amount:         total.Float(),
		IdempotencyKey: chargeIdempotencyKey,
	})

	if chargeErr != nil || chargeResp == nil || !chargeResp.Success {
		message := "payment failed"
		if chargeErr != nil {
			message = chargeErr.Error()
		} else if chargeResp != nil {
			message = chargeResp.Message
		}
		return o.releaseAndCancel(ctx, clog, correlationID, order, req, message)
	}

	order.PaymentID = chargeResp.PaymentID
	return o.allocate(ctx, clog, correlationID, order, req, event, seats, total)
}

func (o *Orchestrator) lookupByIdempotencyKey(ctx context.Context, key string) (*models.OrderResponse, error) {
	order, err := o.store.FindOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, nil // not found is the expected "no hit" path
	}
	tickets, err := o.store.FindTicketsByOrder(ctx, order.OrderID)
	if err != nil {
		tickets = nil
	}
	resp := toOrderResponse(*order, tickets)
	return &resp, nil
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

func (o *Orchestrator) releaseSeatsBestEffort(ctx context.Context, clog *logger.Correlated, eventID int64, userID string, seatIDs []string) {
	if err := o.seating.ReleaseSeats(ctx, models.ReleaseSeatsRequest{EventID: eventID, UserID: userID, SeatIDs: seatIDs}); err != nil {
		clog.Warn("SEATING", fmt.Sprintf("best-effort seat release failed for event %d: %v", eventID, err))
	}
}

func toOrderResponse(order models.Order, tickets []models.Ticket) models.OrderResponse {
	resp := models.OrderResponse{
		OrderID:        order.OrderID,
		UserID:         order.UserID,
		EventID:        order.EventID,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		OrderTotal:     money.Cents(order.OrderTotal).Float(),
		IdempotencyKey: order.IdempotencyKey,
		CreatedAt:      order.CreatedAt,
	}
	for _, t := range tickets {
		resp.Tickets = append(resp.Tickets, toTicketResponse(t))
	}
	return resp
}

func toTicketResponse(t models.Ticket) models.TicketResponse {
	return models.TicketResponse{
		TicketID:  t.TicketID,
		OrderID:   t.OrderID,
		EventID:   t.EventID,
		SeatID:    t.SeatID,
		PricePaid: money.Cents(t.PricePaid).Float(),
		QRCode:    t.QRCode,
		CreatedAt: t.CreatedAt,
	}
}
