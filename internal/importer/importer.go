// Package importer loads line items from text files into an order.
//
// Each non-blank line holds "name,price,quantity[,currency]". Lines starting
// with '#' are comments. Files ending in .gz are decompressed with pgzip.
package importer

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-total/internal/domain/order"
)

// LineError reports a malformed or rejected line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return "line " + strconv.Itoa(e.Line) + ": " + e.Err.Error()
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Read parses line items from r and calls fn for each of them.
func Read(ctx context.Context, r io.Reader, fn func(order.LineItem) error) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		item, err := parseLine(line)
		if err != nil {
			return &LineError{Line: lineNo, Err: err}
		}
		if err := fn(item); err != nil {
			return &LineError{Line: lineNo, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scan")
	}
	return nil
}

func parseLine(line string) (order.LineItem, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.TrimLeadingSpace = true
	fields, err := cr.Read()
	if err != nil {
		return order.LineItem{}, errors.Wrap(err, "parse fields")
	}
	if len(fields) < 3 || len(fields) > 4 {
		return order.LineItem{}, errors.Errorf("expected 3 or 4 fields, got %d", len(fields))
	}

	price, err := decimal.NewFromString(strings.TrimSpace(fields[1]))
	if err != nil {
		return order.LineItem{}, errors.Wrapf(err, "parse price %q", fields[1])
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return order.LineItem{}, errors.Wrapf(err, "parse quantity %q", fields[2])
	}

	item := order.LineItem{
		Name:     strings.TrimSpace(fields[0]),
		Price:    price,
		Quantity: quantity,
	}
	if len(fields) == 4 {
		item.Currency = strings.TrimSpace(fields[3])
	}
	return item, nil
}

// Load reads every line item from r into o.
func Load(ctx context.Context, r io.Reader, o *order.Order) error {
	return Read(ctx, r, o.Add)
}

// LoadFile reads the line items of path into o, decompressing .gz files.
func LoadFile(ctx context.Context, path string, o *order.Order) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	if err := Load(ctx, r, o); err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	return nil
}

// LoadFiles loads each path into its own order, concurrently. The result is
// index-aligned with paths.
func LoadFiles(ctx context.Context, paths []string) ([]*order.Order, error) {
	orders := make([]*order.Order, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			o := order.New()
			if err := LoadFile(ctx, path, o); err != nil {
				return err
			}
			orders[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return orders, nil
}
