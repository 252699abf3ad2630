package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/order-total/internal/domain/currency"
	"github.com/xenking/order-total/internal/domain/order"
)

// Handler serves the order and currency HTTP API.
type Handler struct {
	orders    *order.Service
	converter *currency.Converter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, converter *currency.Converter) *Handler {
	return &Handler{
		orders:    orders,
		converter: converter,
	}
}

// Routes returns the API routes, relative to the mount point.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Post("/items", h.AddItem)
			r.Get("/total", h.OrderTotal)
		})
	})
	r.Get("/currencies", h.ListCurrencies)
	r.Get("/currencies/convert", h.Convert)
	return r
}
