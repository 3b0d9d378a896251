package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"-3.5", "-3.5", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestNormalizeHalfUp(t *testing.T) {
	cases := []struct {
		in    string
		scale int32
		out   string
	}{
		{"1.005", 2, "1.01"},
		{"1.004", 2, "1.00"},
		{"-1.005", 2, "-1.01"}, // ties away from zero
		{"2.5", 0, "3"},
		{"4.00005", 4, "4.0001"},
		{"0", 2, "0.00"},
	}
	for _, tc := range cases {
		d := decimal.RequireFromString(tc.in)
		got := Normalize(d, tc.scale)
		if got.StringFixed(tc.scale) != tc.out {
			t.Fatalf("Normalize(%s, %d) = %s, want %s", tc.in, tc.scale, got, tc.out)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, s := range []string{"1.005", "99.999", "-0.015", "123.4", "0"} {
		d := decimal.RequireFromString(s)
		once := Normalize(d, AmountScale)
		twice := Normalize(once, AmountScale)
		if !once.Equal(twice) {
			t.Fatalf("Normalize not idempotent for %s: %s != %s", s, once, twice)
		}
	}
}

func TestNormalizeZeroValue(t *testing.T) {
	// The zero value of decimal.Decimal stands in for an absent amount.
	var missing decimal.Decimal
	if got := FormatAmount(NormalizeAmount(missing)); got != "0.00" {
		t.Fatalf("absent amount normalized to %q, want \"0.00\"", got)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"600", "600.00"},
		{"-42.5", "-42.50"},
		{"0", "0.00"},
	}
	for _, tc := range cases {
		if got := FormatAmount(decimal.RequireFromString(tc.in)); got != tc.out {
			t.Fatalf("FormatAmount(%s) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
