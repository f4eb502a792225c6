package adx

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/trogers1052/adx-service/internal/models"
)

// ComputeBatch computes one table per series using up to GOMAXPROCS workers.
// Each series is still a single sequential pass; tables come back in input order.
// Cancelling ctx stops scheduling further series and returns ctx's error.
func ComputeBatch(ctx context.Context, batch []models.Series, period int) ([]*Table, error) {
	calc := NewCalculator(period)
	tables := make([]*Table, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, series := range batch {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tables[i] = calc.Compute(series)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}
