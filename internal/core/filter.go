package core

import (
	"fmt"
	"time"
)

// EntryFilter selects entries. Zero fields are ignored, so the zero value
// matches every entry.
type EntryFilter struct {
	// Start and End are inclusive bounds on the entry date.
	Start *time.Time
	End   *time.Time

	Type     *EntryType
	Currency string

	// Tags lists names an entry must all carry.
	Tags []string

	// Limit caps the number of listed entries; 0 means no cap. Offset skips
	// that many entries in date-descending order.
	Limit  int
	Offset int
}

// Normalize returns a copy with currency uppercased and tag names folded and
// deduplicated. It fails when a tag name or the currency code is invalid.
func (f EntryFilter) Normalize() (EntryFilter, error) {
	out := f
	if f.Currency != "" {
		code, err := NormalizeCurrencyCode(f.Currency)
		if err != nil {
			return EntryFilter{}, err
		}
		out.Currency = code
	}
	if f.Type != nil && !f.Type.Valid() {
		return EntryFilter{}, fmt.Errorf("%w: unknown entry type %q", ErrValidation, *f.Type)
	}
	if f.Limit < 0 || f.Offset < 0 {
		return EntryFilter{}, fmt.Errorf("%w: limit and offset must not be negative", ErrValidation)
	}
	if len(f.Tags) > 0 {
		tags, err := NewTags(f.Tags...)
		if err != nil {
			return EntryFilter{}, err
		}
		out.Tags = TagNames(tags)
	}
	if f.Start != nil {
		s := f.Start.UTC()
		out.Start = &s
	}
	if f.End != nil {
		e := f.End.UTC()
		out.End = &e
	}
	return out, nil
}

// Matches applies every predicate except pagination to e. f must be
// normalized.
func (f EntryFilter) Matches(e LedgerEntry) bool {
	if f.Start != nil && e.Date.Before(*f.Start) {
		return false
	}
	if f.End != nil && e.Date.After(*f.End) {
		return false
	}
	if f.Type != nil && e.Type != *f.Type {
		return false
	}
	if f.Currency != "" && e.Currency != f.Currency {
		return false
	}
	if len(f.Tags) > 0 {
		required := make([]Tag, len(f.Tags))
		for i, n := range f.Tags {
			required[i] = Tag{name: n}
		}
		if !HasAllTags(e.Tags, required) {
			return false
		}
	}
	return true
}

// DateRange is a convenience for building an inclusive date filter.
func DateRange(start, end time.Time) EntryFilter {
	return EntryFilter{Start: &start, End: &end}
}

// TypePtr returns a pointer to t for use in EntryFilter.
func TypePtr(t EntryType) *EntryType { return &t }
