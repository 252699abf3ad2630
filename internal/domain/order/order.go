package order

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is stored on line items added without an explicit currency.
const DefaultCurrency = "USD"

var (
	// ErrInvalidInput is returned when a line item fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when no order exists for the requested id.
	ErrNotFound = errors.New("order not found")
	// ErrLimitReached is returned when the repository cannot hold more orders.
	ErrLimitReached = errors.New("order limit reached")
)

// InvalidItemError describes a rejected line item.
type InvalidItemError struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

func (e *InvalidItemError) Error() string {
	return "invalid input: item name must be non-empty, price and quantity must be greater than 0"
}

// Unwrap allows errors.Is(err, ErrInvalidInput).
func (e *InvalidItemError) Unwrap() error {
	return ErrInvalidInput
}

// LineItem represents a single purchased product entry in an order.
type LineItem struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
	// Currency is the item's currency code. Empty means DefaultCurrency.
	Currency string
}

// Subtotal returns price * quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i LineItem) validate() error {
	if i.Name == "" || !i.Price.IsPositive() || i.Quantity <= 0 {
		return &InvalidItemError{Name: i.Name, Price: i.Price, Quantity: i.Quantity}
	}
	return nil
}

// Order is an ordered collection of line items. It is safe for concurrent use.
type Order struct {
	mu    sync.RWMutex
	items []LineItem
}

// New returns an empty order.
func New() *Order {
	return &Order{}
}

// AddItem appends a line item in DefaultCurrency.
func (o *Order) AddItem(name string, price decimal.Decimal, quantity int) error {
	return o.Add(LineItem{
		Name:     name,
		Price:    price,
		Quantity: quantity,
	})
}

// Add validates item and appends it to the order. On error the order is
// left unchanged.
func (o *Order) Add(item LineItem) error {
	if err := item.validate(); err != nil {
		return err
	}
	if item.Currency == "" {
		item.Currency = DefaultCurrency
	}

	o.mu.Lock()
	o.items = append(o.items, item)
	o.mu.Unlock()

	return nil
}

// CalculateTotal returns the sum of price * quantity across all items.
// Currencies are not converted.
func (o *Order) CalculateTotal() decimal.Decimal {
	o.mu.RLock()
	defer o.mu.RUnlock()

	total := decimal.Zero
	for _, item := range o.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Items returns a copy of the line items in insertion order.
func (o *Order) Items() []LineItem {
	o.mu.RLock()
	defer o.mu.RUnlock()

	items := make([]LineItem, len(o.items))
	copy(items, o.items)
	return items
}

// Len returns the number of line items.
func (o *Order) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return len(o.items)
}

// Repository defines storage operations for orders.
type Repository interface {
	Create(ctx context.Context, id string, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
}
