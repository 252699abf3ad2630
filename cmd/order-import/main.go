// Command order-import loads line items from plain or gzip-compressed files
// and reports the total of each file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/order-total/internal/domain/currency"
	"github.com/xenking/order-total/internal/importer"
)

type config struct {
	Files    []string `usage:"Line item files (.gz files are decompressed)"`
	Currency string   `default:"" usage:"Also report the grand total converted from USD to this currency"`
}

func main() {
	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "ORDERS_IMPORT",
		SkipFiles: true,
	})
	if err := loader.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}

	lg, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Error("Import failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, cfg config) error {
	if len(cfg.Files) == 0 {
		return errors.New("no files given: set -files or ORDERS_IMPORT_FILES")
	}

	lg.Info("Loading line items", zap.Strings("files", cfg.Files))
	orders, err := importer.LoadFiles(ctx, cfg.Files)
	if err != nil {
		return errors.Wrap(err, "load files")
	}

	grand := decimal.Zero
	for i, o := range orders {
		total := o.CalculateTotal()
		lg.Info("Order loaded",
			zap.String("file", cfg.Files[i]),
			zap.Int("items", o.Len()),
			zap.Stringer("total", total),
		)
		grand = grand.Add(total)
	}
	lg.Info("Import completed", zap.Stringer("total", grand))

	if cfg.Currency != "" {
		converted, err := currency.Convert(grand, "USD", cfg.Currency)
		if err != nil {
			return errors.Wrap(err, "convert total")
		}
		lg.Info("Converted total",
			zap.String("currency", cfg.Currency),
			zap.Stringer("total", converted),
		)
	}
	return nil
}
