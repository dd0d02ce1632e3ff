package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"order-orchestrator/internal/correlation"
	"order-orchestrator/internal/logger"
	"order-orchestrator/internal/metrics"
	"order-orchestrator/internal/models"
	"order-orchestrator/internal/money"
	"order-orchestrator/internal/ordererr"
	"order-orchestrator/internal/store"
)

// releaseAndCancel is step 9 of spec §4.1: the payment never
// succeeded, so seats are released best-effort and the order is
// recorded as CANCELLED. The caller still receives a PaymentFailed
// error (HTTP 400) even though the order itself is durably persisted.
func (o *Orchestrator) releaseAndCancel(ctx context.Context, clog *logger.Correlated, correlationID string, order *models.Order, req models.OrderRequest, reason string) (*models.OrderResponse, error) {
	o.releaseSeatsBestEffort(ctx, clog, req.EventID, req.UserID, req.SeatIDs)

	order.Status = models.OrderStatusCancelled
	order.PaymentStatus = models.PaymentStatusFailed
	metrics.PaymentsFailedTotal.Inc()

	now := time.Now().UTC()
	payload, err := json.Marshal(models.OrderCancelledPayload{
		OrderID:       order.OrderID,
		UserID:        order.UserID,
		EventID:       order.EventID,
		Reason:        reason,
		CancelledAt:   now,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, ordererr.Wrap(ordererr.KindPaymentFailed, correlationID, "payment failed and cancellation payload could not be recorded", err)
	}

	outboxEvent := &models.OutboxEvent{
		ID:            uuid.NewString(),
		AggregateType: "Order",
		AggregateID:   fmt.Sprintf("%d", order.OrderID),
		EventType:     models.EventTypeOrderCancelled,
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
		clog.Error("ORDER", fmt.Sprintf("failed to persist cancellation for order %d: %v", order.OrderID, txErr))
		return nil, ordererr.Wrap(ordererr.KindPaymentFailed, correlationID, "payment failed and cancellation could not be committed", txErr)
	}

	return nil, ordererr.New(ordererr.KindPaymentFailed, correlationID, reason)
}

// CancelOrder runs spec §4.1's CancelOrder operation.
func (o *Orchestrator) CancelOrder(ctx context.Context, orderID int64) (*models.OrderResponse, error) {
	correlationID, ctx := correlation.FromContext(ctx)
	clog := o.log.WithCorrelation(correlationID)

	order, err := o.store.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, ordererr.New(ordererr.KindNotFound, correlationID, fmt.Sprintf("order %d not found", orderID))
	}
	switch order.Status {
	case models.OrderStatusCancelled:
		return nil, ordererr.New(ordererr.KindConflict, correlationID, "order already cancelled")
	case models.OrderStatusRefunded:
		return nil, ordererr.New(ordererr.KindConflict, correlationID, "order already refunded")
	}

	tickets, err := o.store.FindTicketsByOrder(ctx, orderID)
	if err != nil {
		tickets = nil
	}
	if len(tickets) > 0 {
		seatIDs := make([]string, 0, len(tickets))
		for _, t := range tickets {
			seatIDs = append(seatIDs, t.SeatID)
		}
		o.releaseSeatsBestEffort(ctx, clog, order.EventID, order.UserID, seatIDs)
	}

	now := time.Now().UTC()
	if order.PaymentStatus == models.PaymentStatusSuccess {
		refundResp, err := o.payment.Refund(ctx, models.RefundRequest{OrderID: order.OrderID, PaymentID: order.PaymentID, Amount: money.Cents(order.OrderTotal).Float(), Reason: "order cancelled"})
		if err == nil && refundResp != nil && refundResp.Success {
			return o.finishCancel(ctx, clog, correlationID, order, models.OrderStatusRefunded, models.PaymentStatusRefunded, models.EventTypeOrderRefunded, now)
		}
		clog.Error("ORDER", fmt.Sprintf("OPERATOR ALERT: refund failed while cancelling order %d", order.OrderID))
		return o.finishCancel(ctx, clog, correlationID, order, models.OrderStatusCancelled, order.PaymentStatus, models.EventTypeOrderCancelled, now)
	}

	return o.finishCancel(ctx, clog, correlationID, order, models.OrderStatusCancelled, order.PaymentStatus, models.EventTypeOrderCancelled, now)
}

func (o *Orchestrator) finishCancel(ctx context.Context, clog *logger.Correlated, correlationID string, order *models.Order, status models.OrderStatus, paymentStatus models.PaymentStatus, eventType models.EventType, at time.Time) (*models.OrderResponse, error) {
	order.Status = status
	order.PaymentStatus = paymentStatus

	var payload []byte
	var err error
	if eventType == models.EventTypeOrderRefunded {
		payload, err = json.Marshal(models.OrderRefundedPayload{
			OrderID: order.OrderID, UserID: order.UserID, EventID: order.EventID,
			RefundedTotal: money.Cents(order.OrderTotal).Float(), RefundedAt: at, CorrelationID: correlationID,
		})
	} else {
		payload, err = json.Marshal(models.OrderCancelledPayload{
			OrderID: order.OrderID, UserID: order.UserID, EventID: order.EventID,
			Reason: "cancelled by request", CancelledAt: at, CorrelationID: correlationID,
		})
	}
	if err != nil {
		return nil, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlationID, "cancellation payload could not be recorded", err)
	}

	outboxEvent := &models.OutboxEvent{
		ID: uuid.NewString(), AggregateType: "Order", AggregateID: fmt.Sprintf("%d", order.OrderID),
		EventType: eventType, Payload: payload, CorrelationID: correlationID, CreatedAt: at, Dispatched: false,
	}

	if txErr := o.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		return tx.InsertOutboxEvent(ctx, outboxEvent)
	}); txErr != nil {
		clog.Error("ORDER", fmt.Sprintf("failed to commit cancellation for order %d: %v", order.OrderID, txErr))
		return nil, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlationID, "cancellation could not be committed", txErr)
	}

	resp := toOrderResponse(*order, nil)
	return &resp, nil
}

// HandleEventCancelled runs spec §4.1's HandleEventCancelled batch:
// every CONFIRMED order for the event is refunded, best-effort,
// accumulating a single operator log line.
func (o *Orchestrator) HandleEventCancelled(ctx context.Context, eventID int64, reason string) error {
	correlationID, ctx := correlation.FromContext(ctx)
	clog := o.log.WithCorrelation(correlationID)

	orders, err := o.store.FindConfirmedOrdersByEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load confirmed orders for event %d: %w", eventID, err)
	}

	var success, failure int
	var totalRefunded money.Cents

	for i := range orders {
		order := orders[i]
		refundResp, err := o.payment.Refund(ctx, models.RefundRequest{OrderID: order.OrderID, PaymentID: order.PaymentID, Amount: money.Cents(order.OrderTotal).Float(), Reason: reason})
		if err != nil || refundResp == nil || !refundResp.Success {
			failure++
			clog.Warn("ORDER", fmt.Sprintf("refund failed for order %d during event %d cancellation", order.OrderID, eventID))
			continue
		}

		if _, err := o.finishCancel(ctx, clog, correlationID, &order, models.OrderStatusRefunded, models.PaymentStatusRefunded, models.EventTypeOrderRefunded, time.Now().UTC()); err != nil {
			failure++
			clog.Warn("ORDER", fmt.Sprintf("failed to persist refund for order %d during event %d cancellation: %v", order.OrderID, eventID, err))
			continue
		}
		success++
		totalRefunded += money.Cents(order.OrderTotal)
	}

	clog.Info("ORDER", fmt.Sprintf("event %d cancellation batch complete: success=%d failure=%d total_refunded=%.2f", eventID, success, failure, totalRefunded.Float()))
	return nil
}
