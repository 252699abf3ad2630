// Command order-sim places many independent orders concurrently and reports
// every user's total.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/order-total/internal/simulate"
)

type config struct {
	Users       int    `default:"50" usage:"Number of users placing orders"`
	Price       string `default:"1000" usage:"Item price"`
	Quantity    int    `default:"1" usage:"Item quantity"`
	Concurrency int    `default:"0" usage:"Max concurrent users (0 = all)"`
	Debug       bool   `default:"false" usage:"Log every placed order"`
}

func main() {
	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS_SIM",
		SkipFiles: true,
	})
	if err := loader.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Debug {
		zcfg.Level.SetLevel(zap.DebugLevel)
	}
	lg, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, lg, cfg); err != nil {
		lg.Error("Simulation failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, cfg config) error {
	price, err := decimal.NewFromString(cfg.Price)
	if err != nil {
		return errors.Wrapf(err, "parse price %q", cfg.Price)
	}

	results, err := simulate.Run(ctx, simulate.Config{
		Users:       cfg.Users,
		Price:       price,
		Quantity:    cfg.Quantity,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		return errors.Wrap(err, "simulate")
	}

	sum := decimal.Zero
	for _, r := range results {
		lg.Info("Order total",
			zap.Int("user", r.User),
			zap.String("item", r.Item),
			zap.Stringer("total", r.Total),
		)
		sum = sum.Add(r.Total)
	}
	lg.Info("Simulation completed",
		zap.Int("orders", len(results)),
		zap.Stringer("sum", sum),
	)
	return nil
}
