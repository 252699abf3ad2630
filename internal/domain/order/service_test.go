package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID      map[string]*Order
	createErr error
	getErr    error
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, id string, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[id] = o
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

// --- Helpers ---

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()

	svc, err := NewService(repo, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)
	return svc
}

// --- Tests ---

func TestService_Create(t *testing.T) {
	repo := newOrderRepo()
	svc := newTestService(t, repo)

	p, err := svc.Create(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Same(t, p.Order, repo.byID[p.ID])
	assert.Equal(t, 0, p.Order.Len())
}

func TestService_CreateError(t *testing.T) {
	repo := newOrderRepo()
	repo.createErr = errors.New("store full")
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestService_AddItemAndTotal(t *testing.T) {
	svc := newTestService(t, newOrderRepo())
	ctx := context.Background()

	p, err := svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.AddItem(ctx, p.ID, LineItem{
		Name:     "Iphone",
		Price:    decimal.NewFromInt(1000),
		Quantity: 2,
		Currency: "USD",
	}))

	total, err := svc.Total(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2000).Equal(total))
}

func TestService_AddItemInvalid(t *testing.T) {
	svc := newTestService(t, newOrderRepo())
	ctx := context.Background()

	p, err := svc.Create(ctx)
	require.NoError(t, err)

	err = svc.AddItem(ctx, p.ID, LineItem{Name: "Tablet", Price: decimal.NewFromInt(-300), Quantity: 2})

	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, p.Order.Len())
}

func TestService_UnknownOrder(t *testing.T) {
	svc := newTestService(t, newOrderRepo())
	ctx := context.Background()

	err := svc.AddItem(ctx, "missing", LineItem{Name: "Iphone", Price: decimal.NewFromInt(1), Quantity: 1})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Total(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

// addedByCurrency collects the orders.items.added counter keyed by its
// currency attribute.
func addedByCurrency(t *testing.T, reader sdkmetric.Reader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "orders.items.added" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "unexpected data type %T", m.Data)
			for _, dp := range sum.DataPoints {
				v, ok := dp.Attributes.Value("currency")
				require.True(t, ok)
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestService_AddItemCurrencyLabel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	svc, err := NewService(newOrderRepo(), tracenoop.NewTracerProvider(), mp)
	require.NoError(t, err)

	ctx := context.Background()
	p, err := svc.Create(ctx)
	require.NoError(t, err)

	for _, code := range []string{"USD", "", "EUR", "XYZ", "usd", "BTC-1"} {
		require.NoError(t, svc.AddItem(ctx, p.ID, LineItem{
			Name:     "Iphone",
			Price:    decimal.NewFromInt(1),
			Quantity: 1,
			Currency: code,
		}))
	}

	assert.Equal(t, map[string]int64{
		"USD":   2,
		"EUR":   1,
		"other": 3,
	}, addedByCurrency(t, reader))

	// Items keep the code they were given.
	items := p.Order.Items()
	require.Len(t, items, 6)
	assert.Equal(t, "XYZ", items[3].Currency)
}
