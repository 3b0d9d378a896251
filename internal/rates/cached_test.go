package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

func TestCachedSourceMemoizesLiveRates(t *testing.T) {
	src := &fakeSource{rate: decimal.RequireFromString("4.31")}
	cached := NewCachedSource(src, 16, time.Minute)

	for i := 0; i < 3; i++ {
		rate, err := cached.GetExchangeRate(context.Background(), core.USD, core.PLN)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rate.String() != "4.31" {
			t.Fatalf("rate = %s, want 4.31", rate)
		}
	}
	if src.liveCalls != 1 {
		t.Fatalf("provider calls = %d, want 1", src.liveCalls)
	}
}

func TestCachedSourceKeysByDateAndPair(t *testing.T) {
	src := &fakeSource{rate: decimal.RequireFromString("4.00")}
	cached := NewCachedSource(src, 16, time.Minute)

	d1 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

	cached.GetHistoricalExchangeRate(context.Background(), core.USD, core.PLN, d1)
	cached.GetHistoricalExchangeRate(context.Background(), core.USD, core.PLN, d1)
	cached.GetHistoricalExchangeRate(context.Background(), core.USD, core.PLN, d2)
	cached.GetHistoricalExchangeRate(context.Background(), core.EUR, core.PLN, d1)

	if src.historicalCalls != 3 {
		t.Fatalf("provider calls = %d, want 3 (distinct date/pair tuples)", src.historicalCalls)
	}
}

func TestCachedSourceDoesNotCacheFailures(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	cached := NewCachedSource(src, 16, time.Minute)

	cached.GetExchangeRate(context.Background(), core.USD, core.PLN)
	cached.GetExchangeRate(context.Background(), core.USD, core.PLN)

	if src.liveCalls != 2 {
		t.Fatalf("provider calls = %d, want 2 (errors must not be cached)", src.liveCalls)
	}
}
