package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"order-orchestrator/internal/logger"
	"order-orchestrator/internal/models"
	"order-orchestrator/internal/money"
	"order-orchestrator/internal/ordererr"
	"order-orchestrator/internal/store"
)

// allocate runs step 8 of spec §4.1: allocate seats, confirm the
// order, issue tickets, and append the OrderConfirmed event. Any
// failure after this point (payment already succeeded) triggers a
// compensating refund rather than surfacing the error directly.
func (o *Orchestrator) allocate(ctx context.Context, clog *logger.Correlated, correlationID string, order *models.Order, req models.OrderRequest, event *models.CatalogEvent, seats []models.Seat, total money.Cents) (*models.OrderResponse, error) {
	if err := o.seating.AllocateSeats(ctx, models.AllocateSeatsRequest{EventID: req.EventID, UserID: req.UserID, SeatIDs: req.SeatIDs}); err != nil {
		return o.compensateRefund(ctx, clog, correlationID, order, total, fmt.Sprintf("seat allocation failed: %v", err))
	}

	priceBySeat := make(map[string]float64, len(seats))
	for _, s := range seats {
		priceBySeat[s.SeatID] = s.Price
	}

	now := time.Now().UTC()
	tickets := make([]models.Ticket, 0, len(req.SeatIDs))
	for _, seatID := range req.SeatIDs {
		tickets = append(tickets, models.Ticket{
			OrderID:   order.OrderID,
			EventID:   req.EventID,
			SeatID:    seatID,
			PricePaid: int64(money.FromFloat(priceBySeat[seatID])),
			CreatedAt: now,
		})
	}

	order.Status = models.OrderStatusConfirmed
	order.PaymentStatus = models.PaymentStatusSuccess

	payload, err := json.Marshal(models.OrderConfirmedPayload{
		OrderID:       order.OrderID,
		UserID:        order.UserID,
		EventID:       order.EventID,
		EventTitle:    event.Title,
		OrderTotal:    total.Float(),
		SeatIDs:       req.SeatIDs,
		ConfirmedAt:   now,
		CorrelationID: correlationID,
	})
	if err != nil {
		return o.compensateRefund(ctx, clog, correlationID, order, total, fmt.Sprintf("failed to encode OrderConfirmed payload: %v", err))
	}

	outboxEvent := &models.OutboxEvent{
		ID:            uuid.NewString(),
		AggregateType: "Order",
		AggregateID:   fmt.Sprintf("%d", order.OrderID),
		EventType:     models.EventTypeOrderConfirmed,
		Payload:       payload,
		CorrelationID: correlationID,
		CreatedAt:     now,
		Dispatched:    false,
	}

	var issuedTickets []models.Ticket
	txErr := o.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.InsertTickets(ctx, tickets); err != nil {
			return err
		}
		if err := tx.InsertOutboxEvent(ctx, outboxEvent); err != nil {
			return err
		}
		issued, err := tx.FindTicketsByOrder(ctx, order.OrderID)
		if err != nil {
			return err
		}

		// QR payloads are generated only now: issued carries the
		// database-assigned TicketID, which the zero-valued tickets
		// built above do not have yet.
		if o.qr != nil {
			for i := range issued {
				qrCode, err := o.qr.Generate(issued[i])
				if err != nil {
					clog.Warn("TICKETING", fmt.Sprintf("failed to generate QR code for ticket %d on order %d: %v", issued[i].TicketID, order.OrderID, err))
					continue
				}
				if err := tx.UpdateTicketQRCode(ctx, issued[i].TicketID, qrCode); err != nil {
					clog.Warn("TICKETING", fmt.Sprintf("failed to persist QR code for ticket %d on order %d: %v", issued[i].TicketID, order.OrderID, err))
					continue
				}
				issued[i].QRCode = qrCode
			}
		}

		issuedTickets = issued
		return nil
	})
	if txErr != nil {
		return o.compensateRefund(ctx, clog, correlationID, order, total, fmt.Sprintf("failed to commit confirmation: %v", txErr))
	}

	resp := toOrderResponse(*order, issuedTickets)
	return &resp, nil
}

// compensateRefund is the compensation branch of the allocate path: a
// post-payment failure triggers an automatic refund attempt. Refund
// success resolves to REFUNDED; refund failure resolves to the
// terminal PAYMENT_COMPLETED_BUT_FULFILLMENT_FAILED sink state with no
// compensating event, because business state is unresolved.
func (o *Orchestrator) compensateRefund(ctx context.Context, clog *logger.Correlated, correlationID string, order *models.Order, total money.Cents, reason string) (*models.OrderResponse, error) {
	refundResp, err := o.payment.Refund(ctx, models.RefundRequest{OrderID: order.OrderID, PaymentID: order.PaymentID, Amount: total.Float(), Reason: reason})
	refundSucceeded := err == nil && refundResp != nil && refundResp.Success

	if refundSucceeded {
		order.Status = models.OrderStatusRefunded
		order.PaymentStatus = models.PaymentStatusRefunded

		now := time.Now().UTC()
		payload, encErr := json.Marshal(models.OrderRefundedPayload{
			OrderID:       order.OrderID,
			UserID:        order.UserID,
			EventID:       order.EventID,
			RefundedTotal: total.Float(),
			RefundedAt:    now,
			CorrelationID: correlationID,
		})
		if encErr != nil {
			clog.Error("ORDER", fmt.Sprintf("failed to encode OrderRefunded payload for order %d: %v", order.OrderID, encErr))
			return nil, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlationID, "fulfillment failed and compensation payload could not be recorded", encErr)
		}

		outboxEvent := &models.OutboxEvent{
			ID:            uuid.NewString(),
			AggregateType: "Order",
			AggregateID:   fmt.Sprintf("%d", order.OrderID),
			EventType:     models.EventTypeOrderRefunded,
			Payload:       payload,
			CorrelationID: correlationID,
			CreatedAt:     now,
			Dispatched:    false,
		}
		if txErr := o.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := tx.UpdateOrder(ctx, order); err != nil {
				return err
			}
			return tx.InsertOutboxEvent(ctx, outboxEvent)
		}); txErr != nil {
			clog.Error("ORDER", fmt.Sprintf("failed to persist refund compensation for order %d: %v", order.OrderID, txErr))
			return nil, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlationID, "fulfillment failed and compensation record could not be committed", txErr)
		}

		clog.Warn("ORDER", fmt.Sprintf("order %d refunded as a post-payment compensation: %s", order.OrderID, reason))
		return nil, ordererr.New(ordererr.KindFulfillmentFailed, correlationID, fmt.Sprintf("order refunded after fulfillment failure: %s", reason))
	}

	order.Status = models.OrderStatusPaymentCompletedFulfillFailed
	if txErr := o.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.UpdateOrder(ctx, order)
	}); txErr != nil {
		clog.Error("ORDER", fmt.Sprintf("failed to persist PAYMENT_COMPLETED_BUT_FULFILLMENT_FAILED for order %d: %v", order.OrderID, txErr))
	}

	clog.Error("ORDER", fmt.Sprintf("OPERATOR ALERT: order %d is PAYMENT_COMPLETED_BUT_FULFILLMENT_FAILED, reason=%s, refund also failed", order.OrderID, reason))
	return nil, ordererr.New(ordererr.KindFulfillmentFailed, correlationID, "payment succeeded but fulfillment and its compensation both failed, operator intervention required")
}
