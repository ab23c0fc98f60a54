package currency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cashbook/internal/cache"
	"cashbook/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	tables map[string]map[string]float64
	err    error
	calls  atomic.Int32
	gate   chan struct{}
}

func (f *fakeSource) FetchRates(ctx context.Context, base string) (RateTable, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return RateTable{}, ctx.Err()
		}
	}
	if f.err != nil {
		return RateTable{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rates, ok := f.tables[base]
	if !ok {
		return RateTable{}, fmt.Errorf("%w: no table for %s", core.ErrNetwork, base)
	}
	out := make(map[string]float64, len(rates))
	for k, v := range rates {
		out[k] = v
	}
	return RateTable{Base: base, Date: "2025-06-01", Rates: out}, nil
}

func newFake() *fakeSource {
	return &fakeSource{tables: map[string]map[string]float64{
		"USD": {"EUR": 0.85, "GBP": 0.75, "JPY": 150},
		"EUR": {"USD": 1.18},
	}}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestConvertAmountUsesCache(t *testing.T) {
	ctx := context.Background()
	src := newFake()
	conv := NewConverter(src, cache.NewRateCache(time.Hour, nil))

	got, err := conv.ConvertAmount(ctx, decimal.NewFromInt(100), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("85")), "got %s", got)
	assert.EqualValues(t, 1, src.calls.Load())

	got, err = conv.ConvertAmount(ctx, decimal.NewFromInt(200), "usd", "eur")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("170")), "got %s", got)
	assert.EqualValues(t, 1, src.calls.Load(), "second call within ttl must hit the cache")
}

func TestWholeTableWarmsCache(t *testing.T) {
	ctx := context.Background()
	src := newFake()
	conv := NewConverter(src, nil)

	_, err := conv.GetExchangeRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 3, conv.Cache().Len())

	rate, err := conv.GetExchangeRate(ctx, "USD", "JPY")
	require.NoError(t, err)
	assert.Equal(t, 150.0, rate)
	assert.EqualValues(t, 1, src.calls.Load())

	// the reverse direction is its own key
	rate, err = conv.GetExchangeRate(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.18, rate)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestSameCurrencyNeverFetches(t *testing.T) {
	src := newFake()
	src.err = errors.New("must not be called")
	conv := NewConverter(src, nil)

	rate, err := conv.GetExchangeRate(context.Background(), "EUR", "eur")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)

	v := decimal.RequireFromString("12.34")
	got, err := conv.ConvertAmount(context.Background(), v, "EUR", "EUR")
	require.NoError(t, err)
	assert.True(t, got.Equal(v))
	assert.Zero(t, src.calls.Load())
	assert.Zero(t, conv.Cache().Len())
}

func TestExpiredRateRefetches(t *testing.T) {
	ctx := context.Background()
	src := newFake()
	clk := &clock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	conv := NewConverter(src, cache.NewRateCache(time.Minute, clk.Now))

	_, err := conv.GetExchangeRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	clk.now = clk.now.Add(2 * time.Minute)
	_, err = conv.GetExchangeRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestMissingPair(t *testing.T) {
	conv := NewConverter(newFake(), nil)
	_, err := conv.GetExchangeRate(context.Background(), "USD", "CHF")
	require.ErrorIs(t, err, core.ErrExchangeRateUnavailable)

	var unavailable *core.ExchangeRateUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "USD", unavailable.From)
	assert.Equal(t, "CHF", unavailable.To)
}

func TestSourceErrorPassesThrough(t *testing.T) {
	src := newFake()
	src.err = fmt.Errorf("%w: connection refused", core.ErrNetwork)
	conv := NewConverter(src, nil)

	_, err := conv.ConvertAmount(context.Background(), decimal.NewFromInt(1), "USD", "EUR")
	assert.ErrorIs(t, err, core.ErrNetwork)
	assert.Zero(t, conv.Cache().Len())
}

func TestUnusableRate(t *testing.T) {
	for _, rate := range []float64{0, -1, math.Inf(1)} {
		src := newFake()
		src.tables["USD"]["EUR"] = rate
		conv := NewConverter(src, nil)
		_, err := conv.ConvertAmount(context.Background(), decimal.NewFromInt(1), "USD", "EUR")
		assert.ErrorIs(t, err, core.ErrConversion, "rate %v", rate)
	}
}

func TestConcurrentMissesShareFetch(t *testing.T) {
	src := newFake()
	src.gate = make(chan struct{})
	conv := NewConverter(src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rate, err := conv.GetExchangeRate(context.Background(), "USD", "GBP")
			assert.NoError(t, err)
			assert.Equal(t, 0.75, rate)
		}()
	}
	// let the goroutines pile up on the in-flight fetch
	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.EqualValues(t, 1, src.calls.Load())
}

func TestAbandonedCallerLeavesSharedFetchRunning(t *testing.T) {
	src := newFake()
	src.gate = make(chan struct{})
	conv := NewConverter(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := conv.GetExchangeRate(ctx, "USD", "EUR")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		rate float64
		err  error
	}
	second := make(chan result, 1)
	go func() {
		rate, err := conv.GetExchangeRate(context.Background(), "USD", "EUR")
		second <- result{rate, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(src.gate)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 0.85, res.rate)
	assert.EqualValues(t, 1, src.calls.Load())

	rate, ok := conv.Cache().Get("USD", "GBP")
	assert.True(t, ok, "fetch completed and filled the cache")
	assert.Equal(t, 0.75, rate)
}

func TestConvertAmountValue(t *testing.T) {
	conv := NewConverter(newFake(), nil)
	usd, err := core.NewAmount(decimal.NewFromInt(100), "USD")
	require.NoError(t, err)

	eur, err := conv.Convert(context.Background(), usd, "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", eur.Currency())
	assert.Equal(t, "85.00 EUR", eur.String())

	_, err = conv.Convert(context.Background(), usd, "NOPE")
	assert.ErrorIs(t, err, core.ErrInvalidCurrency)
}
