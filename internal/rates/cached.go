package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/cache"
	"moneta/internal/core"
)

// CachedSource memoizes provider responses across requests. This sits outside
// the request-scoped resolver batch: the batch guarantees one lookup per tuple
// within a request, the cache merely spares repeated provider calls between
// requests. Historical rates never change, so the TTL only really matters for
// live rates; sharing one TTL keeps the cache simple.
type CachedSource struct {
	source Source
	rates  *cache.LRU[decimal.Decimal]
}

var _ Source = (*CachedSource)(nil)

func NewCachedSource(source Source, maxSize int, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		rates:  cache.NewLRU[decimal.Decimal](maxSize, ttl),
	}
}

func (c *CachedSource) GetExchangeRate(ctx context.Context, from, to core.Currency) (decimal.Decimal, error) {
	key := "live|" + string(from) + "|" + string(to)
	if rate, ok := c.rates.Get(key); ok {
		return rate, nil
	}
	rate, err := c.source.GetExchangeRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	c.rates.Set(key, rate)
	return rate, nil
}

func (c *CachedSource) GetHistoricalExchangeRate(ctx context.Context, from, to core.Currency, date time.Time) (decimal.Decimal, error) {
	key := core.DateOnly(date).Format(dateLayout) + "|" + string(from) + "|" + string(to)
	if rate, ok := c.rates.Get(key); ok {
		return rate, nil
	}
	rate, err := c.source.GetHistoricalExchangeRate(ctx, from, to, date)
	if err != nil {
		return decimal.Zero, err
	}
	c.rates.Set(key, rate)
	return rate, nil
}
