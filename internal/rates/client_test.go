package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"moneta/internal/core"
)

func TestClientGetExchangeRate(t *testing.T) {
	var gotPath, gotFrom, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"conversionRate": "4.3125"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	rate, err := c.GetExchangeRate(context.Background(), core.USD, core.PLN)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate.String() != "4.3125" {
		t.Fatalf("rate = %s, want 4.3125", rate)
	}
	if gotPath != "/v1/rates/current" || gotFrom != "USD" || gotTo != "PLN" {
		t.Fatalf("request = %s from=%s to=%s", gotPath, gotFrom, gotTo)
	}
}

func TestClientGetHistoricalExchangeRate(t *testing.T) {
	var gotPath, gotDate string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDate = r.URL.Query().Get("date")
		w.Write([]byte(`{"conversionRate": "4.0000"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	date := time.Date(2025, 12, 24, 15, 4, 5, 0, time.UTC)
	rate, err := c.GetHistoricalExchangeRate(context.Background(), core.USD, core.PLN, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate.String() != "4" {
		t.Fatalf("rate = %s, want 4", rate)
	}
	if gotPath != "/v1/rates/historical" || gotDate != "2025-12-24" {
		t.Fatalf("request = %s date=%s", gotPath, gotDate)
	}
}

func TestClientErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"quota", http.StatusTooManyRequests, "", ErrQuotaExceeded},
		{"unknown pair", http.StatusNotFound, "", ErrUnknownPair},
		{"server error", http.StatusInternalServerError, "", ErrRateService},
		{"garbage body", http.StatusOK, `{"conversionRate": "n/a"}`, ErrRateService},
		{"zero rate", http.StatusOK, `{"conversionRate": "0"}`, ErrRateService},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(WithBaseURL(srv.URL))
			_, err := c.GetExchangeRate(context.Background(), core.EUR, core.PLN)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestClientSendsAPIKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"conversionRate": "1.1"}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithAPIKey("sekret"))
	if _, err := c.GetExchangeRate(context.Background(), core.EUR, core.USD); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer sekret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}
