package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeCurrencyCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"usd", "USD", true},
		{" eur ", "EUR", true},
		{"JPY", "JPY", true},
		{"XXQ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeCurrencyCode(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidCurrency) {
			t.Fatalf("%q expected ErrInvalidCurrency, got %v", tc.in, err)
		}
	}
}

func TestAmountArithmetic(t *testing.T) {
	usd10, _ := NewAmount(decimal.NewFromInt(10), "usd")
	usd3, _ := NewAmount(decimal.RequireFromString("3.25"), "USD")
	eur1, _ := NewAmount(decimal.NewFromInt(1), "EUR")

	sum, err := usd10.Add(usd3)
	if err != nil || !sum.Value().Equal(decimal.RequireFromString("13.25")) || sum.Currency() != "USD" {
		t.Fatalf("unexpected sum %v (err=%v)", sum, err)
	}
	diff, err := usd10.Sub(usd3)
	if err != nil || !diff.Value().Equal(decimal.RequireFromString("6.75")) {
		t.Fatalf("unexpected diff %v (err=%v)", diff, err)
	}

	if _, err := usd10.Add(eur1); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
	if _, err := usd10.Sub(eur1); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
	if _, err := usd10.Div(decimal.Zero); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	half, err := usd10.Div(decimal.NewFromInt(4))
	if err != nil || !half.Value().Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("unexpected quotient %v (err=%v)", half, err)
	}

	// operands are never mutated
	if !usd10.Value().Equal(decimal.NewFromInt(10)) {
		t.Fatalf("operand changed: %v", usd10)
	}
}

func TestAmountString(t *testing.T) {
	a, _ := NewAmount(decimal.RequireFromString("1234.5"), "EUR")
	if a.String() != "1234.50 EUR" {
		t.Fatalf("unexpected string %q", a.String())
	}
	y, _ := NewAmount(decimal.RequireFromString("1234.4"), "JPY")
	if y.String() != "1234 JPY" {
		t.Fatalf("unexpected string %q", y.String())
	}
}
