// Package ordererr gives every saga failure a stable kind so the HTTP
// facade and the orchestrator's compensation logic can switch on it
// instead of matching error strings.
package ordererr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a saga failure per spec.md §7.
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindNotFound           Kind = "NotFound"
	KindNotSellable        Kind = "NotSellable"
	KindSeatUnavailable    Kind = "SeatUnavailable"
	KindPaymentFailed      Kind = "PaymentFailed"
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	KindConflict           Kind = "Conflict"
	KindFulfillmentFailed  Kind = "FulfillmentFailed"
)

// httpStatus maps each kind to the HTTP status the facade should answer
// with. Anything not in this table is a 500.
var httpStatus = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindNotFound:            http.StatusNotFound,
	KindNotSellable:         http.StatusBadRequest,
	KindSeatUnavailable:     http.StatusBadRequest,
	KindPaymentFailed:       http.StatusBadRequest,
	KindUpstreamUnavailable: http.StatusBadGateway,
	KindConflict:            http.StatusBadRequest,
	KindFulfillmentFailed:   http.StatusInternalServerError,
}

// Error is a saga failure tagged with a Kind and the correlation id it
// happened under.
type Error struct {
	Kind          Kind
	CorrelationID string
	Message       string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error without a wrapped cause.
func New(kind Kind, correlationID, message string) *Error {
	return &Error{Kind: kind, CorrelationID: correlationID, Message: message}
}

// Wrap builds an *Error around an existing error.
func Wrap(kind Kind, correlationID, message string, err error) *Error {
	return &Error{Kind: kind, CorrelationID: correlationID, Message: message, Err: err}
}

// HTTPStatus returns the status code err should surface as. Non-*Error
// values (or nil) surface as 500, matching spec.md §7's "anything else is
// 500" fallback.
func HTTPStatus(err error) int {
	var oe *Error
	if errors.As(err, &oe) {
		if status, ok := httpStatus[oe.Kind]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// KindOf extracts the Kind carried by err, or "" if err isn't an *Error.
func KindOf(err error) Kind {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}
