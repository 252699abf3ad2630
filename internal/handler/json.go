package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxDecimalDigits bounds the printed length of client supplied numbers.
const maxDecimalDigits = 32

// errNumberOutOfRange is returned for numbers longer than maxDecimalDigits.
var errNumberOutOfRange = errors.New("number out of range")

// writeJSON encodes the body produced by fn and writes it with status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("Write response", zap.Error(err))
	}
}

// writeError writes the {"code","message"} error body.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

// encodeDecimal writes d as a JSON number without losing precision.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

// decodeDecimal reads a JSON number into a decimal.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if tt := d.Next(); tt != jx.Number {
		return decimal.Zero, errors.Errorf("expected number, got %s", tt)
	}
	num, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	v, err := decimal.NewFromString(num.String())
	if err != nil {
		return decimal.Zero, err
	}
	if err := checkDecimal(v); err != nil {
		return decimal.Zero, err
	}
	return v, nil
}

// checkDecimal rejects values whose coefficient and exponent together
// print more than maxDecimalDigits digits.
func checkDecimal(v decimal.Decimal) error {
	exp := int64(v.Exponent())
	if exp < 0 {
		exp = -exp
	}
	if exp > maxDecimalDigits || int64(v.NumDigits())+exp > maxDecimalDigits {
		return errNumberOutOfRange
	}
	return nil
}
