// Package memory provides in-process repositories.
package memory

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/order-total/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository with a map guarded by a mutex.
type OrderRepository struct {
	limit int

	mu     sync.RWMutex
	orders map[string]*order.Order
}

// NewOrderRepository returns an empty OrderRepository holding at most limit
// orders. A non-positive limit means unbounded.
func NewOrderRepository(limit int) *OrderRepository {
	return &OrderRepository{
		limit:  limit,
		orders: make(map[string]*order.Order),
	}
}

// Create stores o under id. It fails if id is already taken or the limit
// is reached.
func (r *OrderRepository) Create(_ context.Context, id string, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limit > 0 && len(r.orders) >= r.limit {
		return order.ErrLimitReached
	}
	if _, ok := r.orders[id]; ok {
		return errors.Errorf("order %q already exists", id)
	}
	r.orders[id] = o
	return nil
}

// Get returns the order stored under id, or order.ErrNotFound.
func (r *OrderRepository) Get(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

// Limit returns the configured capacity, zero when unbounded.
func (r *OrderRepository) Limit() int {
	return max(r.limit, 0)
}

// Len returns the number of stored orders.
func (r *OrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.orders)
}
