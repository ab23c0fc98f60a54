package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType tells whether an entry adds to or subtracts from the balance.
type EntryType string

const (
	Income  EntryType = "Income"
	Expense EntryType = "Expense"
)

// ParseEntryType accepts "income"/"expense" in any case.
func ParseEntryType(s string) (EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	default:
		return "", fmt.Errorf("%w: unknown entry type %q", ErrValidation, s)
	}
}

// Valid reports whether t is Income or Expense.
func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

func (t EntryType) String() string { return string(t) }

// LedgerEntry is a dated transaction. Values are built by NewEntry and never
// mutated afterwards; an update is a new value carrying the same ID.
type LedgerEntry struct {
	ID          string
	Date        time.Time
	Name        string
	Currency    string
	Amount      decimal.Decimal
	Description string
	Tags        []Tag
	Type        EntryType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EntryOptions carries the fields used to build a LedgerEntry. Name,
// Currency, Amount and Type are required; everything else has a default.
type EntryOptions struct {
	ID          string
	Date        time.Time
	Name        string
	Currency    string
	Amount      decimal.Decimal
	Description string
	Tags        []string
	Type        EntryType
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Now overrides the clock used for defaults. Nil means time.Now.
	Now func() time.Time
}

// NewEntry validates opts in a single pass and builds the entry. All problems
// are reported together, each wrapping ErrValidation.
func NewEntry(opts EntryOptions) (LedgerEntry, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	stamp := now().UTC()

	var errs []error

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		errs = append(errs, ErrEmptyName)
	}

	code, err := NormalizeCurrencyCode(opts.Currency)
	if err != nil {
		errs = append(errs, err)
	}

	if !opts.Amount.IsPositive() {
		errs = append(errs, fmt.Errorf("%w: got %s", ErrInvalidAmount, opts.Amount.String()))
	}

	if opts.Type == "" {
		errs = append(errs, ErrMissingType)
	} else if !opts.Type.Valid() {
		errs = append(errs, fmt.Errorf("%w: unknown entry type %q", ErrValidation, opts.Type))
	}

	tags, err := NewTags(opts.Tags...)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return LedgerEntry{}, errors.Join(errs...)
	}

	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = uuid.NewString()
	}

	e := LedgerEntry{
		ID:          id,
		Date:        orDefault(opts.Date, stamp),
		Name:        name,
		Currency:    code,
		Amount:      opts.Amount,
		Description: strings.TrimSpace(opts.Description),
		Tags:        tags,
		Type:        opts.Type,
		CreatedAt:   orDefault(opts.CreatedAt, stamp),
		UpdatedAt:   orDefault(opts.UpdatedAt, stamp),
	}
	return e, nil
}

func orDefault(t, def time.Time) time.Time {
	if t.IsZero() {
		return def
	}
	return t.UTC()
}

// Options returns the options that rebuild e unchanged.
func (e LedgerEntry) Options() EntryOptions {
	return EntryOptions{
		ID:          e.ID,
		Date:        e.Date,
		Name:        e.Name,
		Currency:    e.Currency,
		Amount:      e.Amount,
		Description: e.Description,
		Tags:        TagNames(e.Tags),
		Type:        e.Type,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// Rebuild applies edit to a copy of e's options and builds a new entry with
// the same ID, type and creation time. UpdatedAt is reset so the new value is
// stamped at build time unless edit sets it.
func (e LedgerEntry) Rebuild(edit func(*EntryOptions)) (LedgerEntry, error) {
	opts := e.Options()
	opts.UpdatedAt = time.Time{}
	if edit != nil {
		edit(&opts)
	}
	opts.ID = e.ID
	opts.Type = e.Type
	opts.CreatedAt = e.CreatedAt
	return NewEntry(opts)
}

// Money returns the entry amount as a currency-coded Amount.
func (e LedgerEntry) Money() Amount {
	return Amount{code: e.Currency, value: e.Amount}
}

// Equal compares every field, treating decimals and instants by value.
func (e LedgerEntry) Equal(o LedgerEntry) bool {
	if e.ID != o.ID || e.Name != o.Name || e.Currency != o.Currency ||
		e.Description != o.Description || e.Type != o.Type {
		return false
	}
	if !e.Amount.Equal(o.Amount) || !e.Date.Equal(o.Date) ||
		!e.CreatedAt.Equal(o.CreatedAt) || !e.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	if len(e.Tags) != len(o.Tags) {
		return false
	}
	return HasAllTags(e.Tags, o.Tags)
}
