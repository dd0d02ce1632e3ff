package clients

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"order-orchestrator/internal/models"
	"order-orchestrator/internal/money"
)

// StripePayment is the production Payment adapter. It charges through
// a Stripe PaymentIntent, relying on Stripe's own Idempotency-Key
// request option to dedupe retries of the same Charge call instead of
// reinventing dedup logic, per spec §4.2's "server must dedupe by
// idempotency_key".
type StripePayment struct {
	client   *stripe.Client
	currency string
}

func NewStripePayment(secretKey, currency string) *StripePayment {
	if currency == "" {
		currency = "usd"
	}
	return &StripePayment{client: stripe.NewClient(secretKey), currency: currency}
}

func (p *StripePayment) Charge(ctx context.Context, req models.ChargeRequest) (*models.ChargeResponse, error) {
	amountCents := money.FromFloat(req.Amount)

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(int64(amountCents)),
		Currency: stripe.String(p.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Confirm: stripe.Bool(true),
	}
	params.AddMetadata("order_id", fmt.Sprintf("%d", req.OrderID))
	params.AddMetadata("user_id", req.UserID)
	params.IdempotencyKey = stripe.String(req.IdempotencyKey)

	intent, err := p.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return &models.ChargeResponse{
			Success: false,
			Status:  models.ChargeStatusFailed,
			Message: stripeErrorMessage(err),
		}, nil
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return &models.ChargeResponse{
			Success:              false,
			PaymentID:            intent.ID,
			Status:               models.ChargeStatusFailed,
			Message:              fmt.Sprintf("payment intent ended in status %s", intent.Status),
			TransactionReference: intent.ID,
		}, nil
	}

	return &models.ChargeResponse{
		Success:              true,
		PaymentID:            intent.ID,
		Status:               models.ChargeStatusSuccess,
		Message:              "charged",
		TransactionReference: intent.ID,
	}, nil
}

func (p *StripePayment) Refund(ctx context.Context, req models.RefundRequest) (*models.RefundResponse, error) {
	amountCents := money.FromFloat(req.Amount)

	params := &stripe.RefundCreateParams{
		Amount:        stripe.Int64(int64(amountCents)),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
		PaymentIntent: stripe.String(req.PaymentID),
	}
	params.AddMetadata("order_id", fmt.Sprintf("%d", req.OrderID))
	params.AddMetadata("reason", req.Reason)

	_, err := p.client.V1Refunds.Create(ctx, params)
	if err != nil {
		return &models.RefundResponse{Success: false, Message: stripeErrorMessage(err)}, nil
	}
	return &models.RefundResponse{Success: true, Message: "refunded"}, nil
}

func stripeErrorMessage(err error) string {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return stripeErr.Msg
	}
	return err.Error()
}

