package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func validOptions() EntryOptions {
	return EntryOptions{
		Name:     "Salary",
		Currency: "usd",
		Amount:   decimal.NewFromInt(5000),
		Tags:     []string{"Salary", "work"},
		Type:     Income,
		Now:      clock,
	}
}

func TestNewEntryDefaults(t *testing.T) {
	e, err := NewEntry(validOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated id")
	}
	if !e.Date.Equal(fixedNow) || !e.CreatedAt.Equal(fixedNow) || !e.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("expected timestamps at build time, got %v %v %v", e.Date, e.CreatedAt, e.UpdatedAt)
	}
	if e.Currency != "USD" {
		t.Fatalf("expected normalized currency, got %s", e.Currency)
	}
	if len(e.Tags) != 2 || e.Tags[0].Name() != "salary" || e.Tags[1].Name() != "work" {
		t.Fatalf("unexpected tags %v", e.Tags)
	}

	other, _ := NewEntry(validOptions())
	if other.ID == e.ID {
		t.Fatal("expected unique ids")
	}
}

func TestNewEntryKeepsExplicitFields(t *testing.T) {
	opts := validOptions()
	opts.ID = "entry-1"
	opts.Date = time.Date(2024, 12, 31, 23, 0, 0, 0, time.FixedZone("CET", 3600))
	opts.Description = "  december  "
	e, err := NewEntry(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != "entry-1" || e.Description != "december" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Date.Location() != time.UTC || !e.Date.Equal(opts.Date) {
		t.Fatalf("expected same instant in UTC, got %v", e.Date)
	}
}

func TestNewEntryRejectsInvalidAmounts(t *testing.T) {
	for _, amt := range []string{"0", "-0.01", "-1200"} {
		opts := validOptions()
		opts.Amount = decimal.RequireFromString(amt)
		if _, err := NewEntry(opts); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amt, err)
		}
	}
}

func TestNewEntryReportsAllProblems(t *testing.T) {
	_, err := NewEntry(EntryOptions{Currency: "nope", Tags: []string{"bad tag"}, Now: clock})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []error{ErrEmptyName, ErrInvalidCurrency, ErrInvalidAmount, ErrMissingType, ErrInvalidTag, ErrValidation} {
		if !errors.Is(err, want) {
			t.Errorf("expected %v in %v", want, err)
		}
	}

	opts := validOptions()
	opts.Type = "Transfer"
	if _, err := NewEntry(opts); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestRebuildKeepsIdentity(t *testing.T) {
	e, _ := NewEntry(validOptions())
	later := fixedNow.Add(time.Hour)

	updated, err := e.Rebuild(func(o *EntryOptions) {
		o.Name = "Bonus"
		o.Tags = []string{"bonus"}
		o.Type = Expense
		o.Now = func() time.Time { return later }
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ID != e.ID || updated.Type != Income || !updated.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("identity not preserved: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(later) {
		t.Fatalf("expected refreshed updated_at, got %v", updated.UpdatedAt)
	}
	if len(updated.Tags) != 1 || updated.Tags[0].Name() != "bonus" {
		t.Fatalf("unexpected tags %v", updated.Tags)
	}
}

func TestEntryEqualAndMoney(t *testing.T) {
	e, _ := NewEntry(validOptions())
	copyOpts := e.Options()
	copyOpts.Amount = decimal.RequireFromString("5000.00")
	same, _ := NewEntry(copyOpts)
	if !e.Equal(same) {
		t.Fatal("expected equal entries")
	}
	copyOpts.Tags = []string{"salary"}
	fewer, _ := NewEntry(copyOpts)
	if e.Equal(fewer) {
		t.Fatal("expected different tag sets to differ")
	}

	exp := validOptions()
	exp.Type = Expense
	rent, _ := NewEntry(exp)
	if m := rent.Money(); m.Currency() != "USD" || !m.Value().Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("unexpected money value %v", m)
	}
}

func TestParseEntryType(t *testing.T) {
	if ty, err := ParseEntryType(" INCOME "); err != nil || ty != Income {
		t.Fatalf("unexpected %v %v", ty, err)
	}
	if ty, err := ParseEntryType("expense"); err != nil || ty != Expense {
		t.Fatalf("unexpected %v %v", ty, err)
	}
	if _, err := ParseEntryType("transfer"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
