package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-total/internal/domain/currency"
	"github.com/xenking/order-total/internal/domain/order"
)

// maxBodySize limits request bodies of item additions.
const maxBodySize = 64 << 10

// CreateOrder creates an empty order and responds with its id.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	p, err := h.orders.Create(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		})
	})
}

// GetOrder responds with the order's items and total.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		mapError(w, r, err)
		return
	}

	items := o.Items()
	total := o.CalculateTotal()

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(id) })
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, item := range items {
						encodeLineItem(e, item)
					}
				})
			})
			e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, total) })
		})
	})
}

// AddItem decodes a line item and appends it to the order.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := decodeLineItem(jx.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), 512))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.orders.AddItem(r.Context(), id, item); err != nil {
		mapError(w, r, err)
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		mapError(w, r, err)
		return
	}
	count, total := o.Len(), o.CalculateTotal()

	writeJSON(w, r, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("count", func(e *jx.Encoder) { e.Int(count) })
			e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, total) })
		})
	})
}

// OrderTotal responds with the order's total.
func (h *Handler) OrderTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.orders.Total(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, total) })
		})
	})
}

func encodeLineItem(e *jx.Encoder, item order.LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("name", func(e *jx.Encoder) { e.Str(item.Name) })
		e.Field("price", func(e *jx.Encoder) { encodeDecimal(e, item.Price) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(item.Currency) })
	})
}

func decodeLineItem(d *jx.Decoder) (order.LineItem, error) {
	var item order.LineItem
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			item.Name = v
		case "price":
			v, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			item.Price = v
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			item.Quantity = v
		case "currency":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "currency")
			}
			item.Currency = v
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return order.LineItem{}, err
	}
	return item, nil
}

// mapError converts domain errors to HTTP error responses.
func mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrLimitReached):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, order.ErrInvalidInput),
		errors.Is(err, currency.ErrUnsupportedCurrency):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
