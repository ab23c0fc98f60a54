// Package currency converts amounts between currencies using exchange rates
// fetched from a RateSource and memoized in a cache.RateCache.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"cashbook/internal/cache"
	"cashbook/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Converter resolves exchange rates and converts amounts. It is safe for
// concurrent use; all mutable state lives in the cache.
type Converter struct {
	source RateSource
	cache  *cache.RateCache
	group  singleflight.Group
}

// NewConverter creates a converter reading rates from source and caching them
// in rates.
func NewConverter(source RateSource, rates *cache.RateCache) *Converter {
	if rates == nil {
		rates = cache.NewRateCache(cache.DefaultRateTTL, nil)
	}
	return &Converter{source: source, cache: rates}
}

// Cache exposes the rate cache, mainly for inspection.
func (c *Converter) Cache() *cache.RateCache { return c.cache }

// GetExchangeRate returns how many units of to one unit of from buys. Equal
// codes short-circuit to 1. A cache miss fetches the whole table for from and
// caches every pair in it.
func (c *Converter) GetExchangeRate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return 1.0, nil
	}

	if rate, ok := c.cache.Get(from, to); ok {
		slog.DebugContext(ctx, "Rate cache hit", "from", from, "to", to)
		return rate, nil
	}

	// The shared fetch outlives any single caller; a caller that gives up
	// only stops waiting for it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(from, func() (any, error) {
		table, err := c.source.FetchRates(fetchCtx, from)
		if err != nil {
			return RateTable{}, err
		}
		for code, rate := range table.Rates {
			c.cache.Put(from, code, rate)
		}
		slog.DebugContext(fetchCtx, "Rate table cached", "base", from, "pairs", len(table.Rates), "date", table.Date)
		return table, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("fetch %s rates: %w", from, ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return 0, fmt.Errorf("fetch %s rates: %w", from, res.Err)
	}
	table := res.Val.(RateTable)

	rate, ok := table.Rates[to]
	if !ok {
		return 0, &core.ExchangeRateUnavailableError{From: from, To: to}
	}
	return rate, nil
}

// ConvertAmount converts value from one currency to another.
func (c *Converter) ConvertAmount(ctx context.Context, value decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if strings.EqualFold(strings.TrimSpace(from), strings.TrimSpace(to)) {
		return value, nil
	}
	rate, err := c.GetExchangeRate(ctx, from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: unusable rate %v for %s->%s", core.ErrConversion, rate, from, to)
	}
	return value.Mul(decimal.NewFromFloat(rate)), nil
}

// Convert converts a to the currency to.
func (c *Converter) Convert(ctx context.Context, a core.Amount, to string) (core.Amount, error) {
	code, err := core.NormalizeCurrencyCode(to)
	if err != nil {
		return core.Amount{}, err
	}
	v, err := c.ConvertAmount(ctx, a.Value(), a.Currency(), code)
	if err != nil {
		return core.Amount{}, err
	}
	return core.NewAmount(v, code)
}
