// Package simulate places many independent orders concurrently.
package simulate

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-total/internal/domain/order"
)

// Config describes a simulation run.
type Config struct {
	// Users is the number of concurrent users, each placing one order.
	Users int
	// Price and Quantity of the single item every user orders.
	Price    decimal.Decimal
	Quantity int
	// Concurrency bounds the number of goroutines. Zero means Users.
	Concurrency int
}

// Result is the outcome of one user's order.
type Result struct {
	User  int
	Item  string
	Total decimal.Decimal
}

// Run places cfg.Users orders. Each goroutine owns its order; nothing is
// shared between users. Results are indexed by user.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	if cfg.Users <= 0 {
		return nil, errors.Errorf("users must be positive, got %d", cfg.Users)
	}

	results := make([]Result, cfg.Users)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Concurrency > 0 {
		g.SetLimit(cfg.Concurrency)
	}
	for user := range cfg.Users {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := fmt.Sprintf("Iphone_%d", user)
			o := order.New()
			if err := o.AddItem(item, cfg.Price, cfg.Quantity); err != nil {
				return errors.Wrapf(err, "user %d", user)
			}

			total := o.CalculateTotal()
			zctx.From(ctx).Debug("Order placed",
				zap.Int("user", user),
				zap.Stringer("total", total),
			)
			results[user] = Result{User: user, Item: item, Total: total}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
