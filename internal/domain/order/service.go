package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/order-total/internal/domain/currency"
)

const instrumentationName = "github.com/xenking/order-total/internal/domain/order"

// otherCurrency labels metrics of items priced in codes outside the rate table.
const otherCurrency = "other"

// Placed holds a newly created order and its id.
type Placed struct {
	ID    string
	Order *Order
}

// Service manages orders stored in a Repository.
type Service struct {
	orders Repository
	tracer trace.Tracer

	itemsAdded    metric.Int64Counter
	itemsRejected metric.Int64Counter
}

// NewService creates an order Service instrumented with the given providers.
func NewService(orders Repository, tp trace.TracerProvider, mp metric.MeterProvider) (*Service, error) {
	meter := mp.Meter(instrumentationName)

	itemsAdded, err := meter.Int64Counter("orders.items.added",
		metric.WithDescription("Number of line items added to orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create items added counter")
	}
	itemsRejected, err := meter.Int64Counter("orders.items.rejected",
		metric.WithDescription("Number of line items rejected by validation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create items rejected counter")
	}

	return &Service{
		orders:        orders,
		tracer:        tp.Tracer(instrumentationName),
		itemsAdded:    itemsAdded,
		itemsRejected: itemsRejected,
	}, nil
}

// Create stores a new empty order under a fresh id.
func (s *Service) Create(ctx context.Context) (*Placed, error) {
	ctx, span := s.tracer.Start(ctx, "order.Create")
	defer span.End()

	p := &Placed{
		ID:    uuid.New().String(),
		Order: New(),
	}
	span.SetAttributes(attribute.String("order.id", p.ID))

	if err := s.orders.Create(ctx, p.ID, p.Order); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Wrap(err, "create order")
	}

	zctx.From(ctx).Debug("Order created", zap.String("order_id", p.ID))
	return p, nil
}

// Get returns the order stored under id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Get",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return o, nil
}

// AddItem validates item and appends it to the order stored under id.
func (s *Service) AddItem(ctx context.Context, id string, item LineItem) error {
	ctx, span := s.tracer.Start(ctx, "order.AddItem",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := o.Add(item); err != nil {
		s.itemsRejected.Add(ctx, 1)
		span.SetStatus(codes.Error, err.Error())
		zctx.From(ctx).Debug("Item rejected",
			zap.String("order_id", id),
			zap.String("item", item.Name),
			zap.Error(err),
		)
		return err
	}

	s.itemsAdded.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", currencyLabel(item.Currency))))

	return nil
}

func currencyLabel(code string) string {
	if code == "" {
		return DefaultCurrency
	}
	if !currency.IsSupported(code) {
		return otherCurrency
	}
	return code
}

// Total returns the total of the order stored under id.
func (s *Service) Total(ctx context.Context, id string) (decimal.Decimal, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return o.CalculateTotal(), nil
}
