package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"order-orchestrator/internal/correlation"
	"order-orchestrator/internal/models"
	"order-orchestrator/internal/money"
	"order-orchestrator/internal/ordererr"
	"order-orchestrator/internal/orchestrator"
	"order-orchestrator/internal/store"
)

// OrderHandler serves every /api/v1/orders* route plus the
// event-cancelled webhook.
type OrderHandler struct {
	Orchestrator *orchestrator.Orchestrator
	Store        store.Store
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, ordererr.New(ordererr.KindValidation, correlation.IDOrEmpty(r.Context()), "invalid request body"))
		return
	}

	resp, err := h.Orchestrator.CreateOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, ordererr.New(ordererr.KindValidation, correlation.IDOrEmpty(r.Context()), "invalid order id"))
		return
	}

	order, err := h.Store.FindOrderByID(r.Context(), id)
	if err != nil {
		writeError(w, r, ordererr.New(ordererr.KindNotFound, correlation.IDOrEmpty(r.Context()), "order not found"))
		return
	}
	tickets, _ := h.Store.FindTicketsByOrder(r.Context(), id)
	writeJSON(w, http.StatusOK, toOrderResponse(*order, tickets))
}

func (h *OrderHandler) ListOrdersByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	orders, err := h.Store.FindOrdersByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlation.IDOrEmpty(r.Context()), "failed to list orders", err))
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *OrderHandler) ListOrdersByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseID(chi.URLParam(r, "event_id"))
	if err != nil {
		writeError(w, r, ordererr.New(ordererr.KindValidation, correlation.IDOrEmpty(r.Context()), "invalid event id"))
		return
	}
	orders, err := h.Store.FindOrdersByEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, r, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlation.IDOrEmpty(r.Context()), "failed to list orders", err))
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

// ListOrders serves GET /api/v1/orders, clamping page to >= 1 and
// pageSize to 1..100 per spec §6.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := clampInt(queryInt(r, "page", 1), 1, 1<<30)
	pageSize := clampInt(queryInt(r, "pageSize", 50), 1, 100)

	orders, total, err := h.Store.ListOrders(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, r, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlation.IDOrEmpty(r.Context()), "failed to list orders", err))
		return
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	writeJSON(w, http.StatusOK, models.OrderListResponse{
		Data: toOrderResponses(orders),
		Pagination: models.Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: totalPages,
		},
	})
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, ordererr.New(ordererr.KindValidation, correlation.IDOrEmpty(r.Context()), "invalid order id"))
		return
	}

	resp, err := h.Orchestrator.CancelOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	counts, revenue, err := h.Store.CountOrdersByStatus(r.Context())
	if err != nil {
		writeError(w, r, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlation.IDOrEmpty(r.Context()), "failed to compute statistics", err))
		return
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	writeJSON(w, http.StatusOK, models.OrderStatistics{
		TotalOrders:     total,
		ConfirmedOrders: counts[models.OrderStatusConfirmed],
		CancelledOrders: counts[models.OrderStatusCancelled],
		RefundedOrders:  counts[models.OrderStatusRefunded],
		TotalRevenue:    revenue,
	})
}

// EventCancelledWebhook serves POST /api/webhooks/event-cancelled: the
// catalog service notifies us an event was pulled, and every CONFIRMED
// order against it is refunded best-effort.
func (h *OrderHandler) EventCancelledWebhook(w http.ResponseWriter, r *http.Request) {
	var body models.EventCancelledWebhook
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, ordererr.New(ordererr.KindValidation, correlation.IDOrEmpty(r.Context()), "invalid webhook body"))
		return
	}

	if err := h.Orchestrator.HandleEventCancelled(r.Context(), body.EventID, body.Reason); err != nil {
		writeError(w, r, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlation.IDOrEmpty(r.Context()), "event cancellation batch failed", err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

// TicketHandler serves every /v1/tickets* route.
type TicketHandler struct {
	Store store.Store
}

func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, ordererr.New(ordererr.KindValidation, correlation.IDOrEmpty(r.Context()), "invalid ticket id"))
		return
	}
	ticket, err := h.Store.FindTicketByID(r.Context(), id)
	if err != nil {
		writeError(w, r, ordererr.New(ordererr.KindNotFound, correlation.IDOrEmpty(r.Context()), "ticket not found"))
		return
	}
	writeJSON(w, http.StatusOK, toTicketResponse(*ticket))
}

func (h *TicketHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseID(chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, r, ordererr.New(ordererr.KindValidation, correlation.IDOrEmpty(r.Context()), "invalid order id"))
		return
	}
	tickets, err := h.Store.FindTicketsByOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, r, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlation.IDOrEmpty(r.Context()), "failed to list tickets", err))
		return
	}
	writeJSON(w, http.StatusOK, toTicketResponses(tickets))
}

func (h *TicketHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseID(chi.URLParam(r, "event_id"))
	if err != nil {
		writeError(w, r, ordererr.New(ordererr.KindValidation, correlation.IDOrEmpty(r.Context()), "invalid event id"))
		return
	}
	tickets, err := h.Store.FindTicketsByEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, r, ordererr.Wrap(ordererr.KindFulfillmentFailed, correlation.IDOrEmpty(r.Context()), "failed to list tickets", err))
		return
	}
	writeJSON(w, http.StatusOK, toTicketResponses(tickets))
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// errorBody is the stable shape spec §7 requires every non-2xx response
// to carry.
type errorBody struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := ordererr.HTTPStatus(err)
	writeJSON(w, status, errorBody{
		Message:       err.Error(),
		CorrelationID: correlation.IDOrEmpty(r.Context()),
	})
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

func toOrderResponses(orders []models.Order) []models.OrderResponse {
	out := make([]models.OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, nil))
	}
	return out
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

func toTicketResponses(tickets []models.Ticket) []models.TicketResponse {
	out := make([]models.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, toTicketResponse(t))
	}
	return out
}
