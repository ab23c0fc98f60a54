package core

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// NormalizeCurrencyCode uppercases code and checks it against the ISO-4217
// table.
func NormalizeCurrencyCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return "", fmt.Errorf("%w: code is empty", ErrInvalidCurrency)
	}
	if money.GetCurrency(c) == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, c)
	}
	return c, nil
}

// CurrencyFraction returns the number of minor-unit digits for code, or 2
// when the code is unknown.
func CurrencyFraction(code string) int32 {
	if cur := money.GetCurrency(strings.ToUpper(code)); cur != nil {
		return int32(cur.Fraction)
	}
	return 2
}

// Amount is a decimal value tagged with an ISO-4217 currency code.
type Amount struct {
	code  string
	value decimal.Decimal
}

// NewAmount validates code and returns an Amount. Any sign is accepted; the
// positivity rule belongs to LedgerEntry.
func NewAmount(value decimal.Decimal, code string) (Amount, error) {
	c, err := NormalizeCurrencyCode(code)
	if err != nil {
		return Amount{}, err
	}
	return Amount{code: c, value: value}, nil
}

func (a Amount) Currency() string       { return a.code }
func (a Amount) Value() decimal.Decimal { return a.value }

// Equal reports whether a and b carry the same currency and numeric value.
func (a Amount) Equal(b Amount) bool {
	return a.code == b.code && a.value.Equal(b.value)
}

// Add returns a+b. Both operands must share a currency.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.code != b.code {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, a.code, b.code)
	}
	return Amount{code: a.code, value: a.value.Add(b.value)}, nil
}

// Sub returns a-b. Both operands must share a currency.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.code != b.code {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, a.code, b.code)
	}
	return Amount{code: a.code, value: a.value.Sub(b.value)}, nil
}

// Div divides a by divisor.
func (a Amount) Div(divisor decimal.Decimal) (Amount, error) {
	if divisor.IsZero() {
		return Amount{}, ErrDivisionByZero
	}
	return Amount{code: a.code, value: a.value.Div(divisor)}, nil
}

// String formats the amount as "<value> <code>" with the currency's minor
// unit digits.
func (a Amount) String() string {
	return a.value.StringFixed(CurrencyFraction(a.code)) + " " + a.code
}
