package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the ledger, store, converter and
// report packages wraps exactly one of these, so callers can branch with
// errors.Is.
var (
	ErrValidation              = errors.New("validation error")
	ErrNotFound                = errors.New("not found")
	ErrDatabase                = errors.New("database error")
	ErrExchangeRateUnavailable = errors.New("exchange rate unavailable")
	ErrNetwork                 = errors.New("network error")
	ErrJSON                    = errors.New("json error")
	ErrConversion              = errors.New("conversion error")
	ErrInvalidDateRange        = errors.New("invalid date range")
	ErrInvalidLedgerFormat     = errors.New("invalid ledger format")
)

var (
	ErrEmptyName        = fmt.Errorf("%w: entry name is empty", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidCurrency  = fmt.Errorf("%w: unknown currency code", ErrValidation)
	ErrInvalidTag       = fmt.Errorf("%w: invalid tag", ErrValidation)
	ErrMissingType      = fmt.Errorf("%w: entry type is required", ErrValidation)
	ErrFutureDate       = fmt.Errorf("%w: entry date is in the future", ErrValidation)
	ErrCurrencyMismatch = fmt.Errorf("%w: currency mismatch", ErrValidation)
	ErrDivisionByZero   = fmt.Errorf("%w: division by zero", ErrValidation)
)

// ExchangeRateUnavailableError reports a currency pair missing from a fetched
// rate table.
type ExchangeRateUnavailableError struct {
	From string
	To   string
}

func (e *ExchangeRateUnavailableError) Error() string {
	return fmt.Sprintf("exchange rate unavailable: %s -> %s", e.From, e.To)
}

// Is lets errors.Is match the ErrExchangeRateUnavailable kind.
func (e *ExchangeRateUnavailableError) Is(target error) bool {
	return target == ErrExchangeRateUnavailable
}

// NotFoundError returns an ErrNotFound failure for the given entry id.
func NotFoundError(id string) error {
	return fmt.Errorf("%w: entry %s", ErrNotFound, id)
}

// DatabaseError wraps a store engine failure with the operation that caused it.
func DatabaseError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDatabase, op, err)
}
