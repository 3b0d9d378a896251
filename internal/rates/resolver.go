package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/log"
)

// Query identifies one rate lookup inside an aggregation pass: the lookup
// date and the currency pair. It is ephemeral and comparable, so it doubles
// as the memo-map key.
type Query struct {
	Date string // day-granular, "2006-01-02"
	From core.Currency
	To   core.Currency
}

// NewQuery builds a lookup key for converting from one currency to another
// on a given day.
func NewQuery(date time.Time, from, to core.Currency) Query {
	return Query{
		Date: core.DateOnly(date).Format(dateLayout),
		From: from,
		To:   to,
	}
}

func (q Query) day() time.Time {
	d, _ := time.Parse(dateLayout, q.Date)
	return d
}

// Resolver decides between live and historical lookups and dedupes lookups
// within one aggregation pass. It holds no state across calls.
type Resolver struct {
	source Source
	logger *log.Logger
	now    func() time.Time
}

func NewResolver(source Source, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Resolver{
		source: source,
		logger: logger.WithComponent(log.ComponentRates),
		now:    time.Now,
	}
}

// Rate returns the conversion rate from one currency to another on the given
// date. Identical currencies convert at exactly 1 without touching the
// provider. Dates strictly before today resolve against the historical
// endpoint; today and future dates resolve against the live one.
func (r *Resolver) Rate(ctx context.Context, from, to core.Currency, date time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	day := core.DateOnly(date)
	today := core.DateOnly(r.now())
	if day.Before(today) {
		return r.source.GetHistoricalExchangeRate(ctx, from, to, day)
	}
	return r.source.GetExchangeRate(ctx, from, to)
}

// ResolveAll fetches each distinct query exactly once and returns the rates
// that could be resolved. Same-currency queries are skipped (callers apply
// rate 1 directly). A failed lookup is logged as a warning and left out of
// the result; the transactions that needed it are excluded from converted
// totals rather than aborting the whole aggregation.
func (r *Resolver) ResolveAll(ctx context.Context, queries []Query) map[Query]decimal.Decimal {
	resolved := make(map[Query]decimal.Decimal, len(queries))
	failed := make(map[Query]struct{})

	for _, q := range queries {
		if q.From == q.To {
			continue
		}
		if _, ok := resolved[q]; ok {
			continue
		}
		if _, ok := failed[q]; ok {
			continue
		}

		rate, err := r.Rate(ctx, q.From, q.To, q.day())
		if err != nil {
			r.logger.WarnContext(ctx, "Rate lookup failed, excluding affected transactions",
				log.FieldFromCurrency, q.From,
				log.FieldToCurrency, q.To,
				log.FieldRateDate, q.Date,
				log.FieldError, err)
			failed[q] = struct{}{}
			continue
		}
		resolved[q] = rate
	}

	return resolved
}
