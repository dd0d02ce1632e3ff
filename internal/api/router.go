package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"order-orchestrator/internal/logger"
	"order-orchestrator/internal/metrics"
	"order-orchestrator/internal/orchestrator"
	"order-orchestrator/internal/store"
)

// NewRouter wires every route in spec §6 onto a chi mux. ready is
// polled by /health/ready and should fail fast (a DB ping, a redis
// ping) rather than block.
func NewRouter(orch *orchestrator.Orchestrator, st store.Store, log *logger.Logger, ready func() error) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(correlationMiddleware)
	r.Use(requestLogMiddleware(log))

	orderHandler := &OrderHandler{Orchestrator: orch, Store: st}
	ticketHandler := &TicketHandler{Store: st}

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", orderHandler.CreateOrder)
		r.Get("/", orderHandler.ListOrders)
		r.Get("/statistics", orderHandler.Statistics)
		r.Get("/user/{user_id}", orderHandler.ListOrdersByUser)
		r.Get("/event/{event_id}", orderHandler.ListOrdersByEvent)
		r.Get("/{id}", orderHandler.GetOrder)
		r.Post("/{id}/cancel", orderHandler.CancelOrder)
	})

	r.Route("/v1/tickets", func(r chi.Router) {
		r.Get("/{id}", ticketHandler.GetTicket)
		r.Get("/order/{order_id}", ticketHandler.ListByOrder)
		r.Get("/event/{event_id}", ticketHandler.ListByEvent)
	})

	r.Post("/api/webhooks/event-cancelled", orderHandler.EventCancelledWebhook)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}
