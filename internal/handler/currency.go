package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ListCurrencies responds with the supported currency codes.
func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	codes := h.converter.Supported()

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("currencies", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, code := range codes {
						e.Str(code)
					}
				})
			})
		})
	})
}

// Convert converts the amount query parameter between two currencies.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err == nil {
		err = checkDecimal(amount)
	}
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid amount")
		return
	}

	converted, err := h.converter.Convert(amount, from, to)
	if err != nil {
		mapError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("amount", func(e *jx.Encoder) { encodeDecimal(e, converted) })
			e.Field("from", func(e *jx.Encoder) { e.Str(from) })
			e.Field("to", func(e *jx.Encoder) { e.Str(to) })
		})
	})
}
