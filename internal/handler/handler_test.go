package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/order-total/internal/domain/currency"
	"github.com/xenking/order-total/internal/domain/order"
	"github.com/xenking/order-total/internal/storage/memory"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type lineItemResponse struct {
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
	Currency string      `json:"currency"`
}

type orderResponse struct {
	ID    string             `json:"id"`
	Items []lineItemResponse `json:"items"`
	Total json.Number        `json:"total"`
}

type addItemResponse struct {
	Count int         `json:"count"`
	Total json.Number `json:"total"`
}

// --- Helpers ---

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return newLimitedHandler(t, 0)
}

func newLimitedHandler(t *testing.T, limit int) http.Handler {
	t.Helper()

	svc, err := order.NewService(
		memory.NewOrderRepository(limit),
		tracenoop.NewTracerProvider(),
		metricnoop.NewMeterProvider(),
	)
	require.NoError(t, err)

	return NewHandler(svc, currency.NewConverter(currency.DefaultRates())).Routes()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	dec := json.NewDecoder(w.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&v))
	return v
}

func createOrder(t *testing.T, h http.Handler) string {
	t.Helper()

	w := do(t, h, http.MethodPost, "/orders", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.NotEmpty(t, body.ID)
	return body.ID
}

// --- Tests ---

func TestCreateAndGetOrder(t *testing.T) {
	h := newTestHandler(t)
	id := createOrder(t, h)

	w := do(t, h, http.MethodGet, "/orders/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[orderResponse](t, w)
	assert.Equal(t, id, resp.ID)
	assert.Empty(t, resp.Items)
	assert.Equal(t, "0", resp.Total.String())
}

func TestAddItem(t *testing.T) {
	h := newTestHandler(t)
	id := createOrder(t, h)

	w := do(t, h, http.MethodPost, "/orders/"+id+"/items",
		`{"name":"Iphone","price":1000,"quantity":2,"currency":"USD"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	added := decode[addItemResponse](t, w)
	assert.Equal(t, 1, added.Count)
	assert.Equal(t, "2000", added.Total.String())

	w = do(t, h, http.MethodPost, "/orders/"+id+"/items",
		`{"name":"Case","price":19.99,"quantity":1,"extra":{"ignored":true}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, http.MethodGet, "/orders/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[orderResponse](t, w)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, lineItemResponse{Name: "Iphone", Price: "1000", Quantity: 2, Currency: "USD"}, resp.Items[0])
	assert.Equal(t, lineItemResponse{Name: "Case", Price: "19.99", Quantity: 1, Currency: "USD"}, resp.Items[1])
	assert.Equal(t, "2019.99", resp.Total.String())

	w = do(t, h, http.MethodGet, "/orders/"+id+"/total", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":2019.99}`, w.Body.String())
}

func TestAddItem_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "empty name",
			body:     `{"name":"","price":1000,"quantity":2}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "negative price",
			body:     `{"name":"Tablet","price":-300,"quantity":2}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "missing quantity",
			body:     `{"name":"Tablet","price":300}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "name is not a string",
			body:     `{"name":42,"price":300,"quantity":1}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "price is a string",
			body:     `{"name":"Tablet","price":"300","quantity":1}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "price with huge exponent",
			body:     `{"name":"x","price":1e50000000,"quantity":1}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "price with tiny exponent",
			body:     `{"name":"x","price":1e-50000000,"quantity":1}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "price with too many digits",
			body:     `{"name":"x","price":123456789012345678901234567890123,"quantity":1}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed json",
			body:     `{"name":`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t)
			id := createOrder(t, h)

			w := do(t, h, http.MethodPost, "/orders/"+id+"/items", tt.body)

			require.Equal(t, tt.wantCode, w.Code)
			errResp := decode[errorResponse](t, w)
			assert.Equal(t, tt.wantCode, errResp.Code)
			assert.NotEmpty(t, errResp.Message)

			w = do(t, h, http.MethodGet, "/orders/"+id+"/total", "")
			assert.JSONEq(t, `{"total":0}`, w.Body.String())
		})
	}
}

func TestOrderNotFound(t *testing.T) {
	h := newTestHandler(t)

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodGet, "/orders/missing", ""},
		{http.MethodGet, "/orders/missing/total", ""},
		{http.MethodPost, "/orders/missing/items", `{"name":"Iphone","price":1,"quantity":1}`},
	} {
		w := do(t, h, tc.method, tc.target, tc.body)

		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.target)
		assert.Equal(t, http.StatusNotFound, decode[errorResponse](t, w).Code)
	}
}

func TestCreateOrder_LimitReached(t *testing.T) {
	h := newLimitedHandler(t, 1)
	createOrder(t, h)

	w := do(t, h, http.MethodPost, "/orders", "")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Message, "order limit reached")
}

func TestConvert(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, http.MethodGet, "/currencies/convert?amount=1000&from=USD&to=EUR", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"amount":1100,"from":"USD","to":"EUR"}`, w.Body.String())
}

func TestConvert_Errors(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, http.MethodGet, "/currencies/convert?amount=100&from=XYZ&to=USD", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[errorResponse](t, w).Message, "XYZ")

	w = do(t, h, http.MethodGet, "/currencies/convert?amount=abc&from=USD&to=EUR", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/currencies/convert?amount=1e50000000&from=USD&to=EUR", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Less(t, w.Body.Len(), 256)
}

func TestAddItem_LargestAcceptedPrice(t *testing.T) {
	h := newTestHandler(t)
	id := createOrder(t, h)

	w := do(t, h, http.MethodPost, "/orders/"+id+"/items",
		`{"name":"Yacht","price":1e31,"quantity":1}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, http.MethodGet, "/orders/"+id+"/total", "")
	assert.JSONEq(t, `{"total":10000000000000000000000000000000}`, w.Body.String())
}

func TestListCurrencies(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, http.MethodGet, "/currencies", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"currencies":["EUR","GBP","USD"]}`, w.Body.String())
}
