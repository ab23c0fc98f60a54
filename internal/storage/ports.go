package storage

import (
	"context"

	"cashbook/internal/core"
)

// Repository persists ledger entries and their tag links. SQLiteRepository is
// the production implementation; memory.Store satisfies the same contract for
// tests and throwaway ledgers.
type Repository interface {
	// Create stores a new entry. The entry must already carry its ID.
	Create(ctx context.Context, e core.LedgerEntry) error
	// Get returns core.ErrNotFound when no entry has id.
	Get(ctx context.Context, id string) (core.LedgerEntry, error)
	// Update overwrites an existing entry and replaces its tag set.
	Update(ctx context.Context, e core.LedgerEntry) error
	// Delete removes an entry and its tag links.
	Delete(ctx context.Context, id string) error
	// List returns matching entries ordered by date, newest first.
	List(ctx context.Context, f core.EntryFilter) ([]core.LedgerEntry, error)
	// Count returns the number of matching entries, ignoring pagination.
	Count(ctx context.Context, f core.EntryFilter) (int64, error)
	// TagNames returns every tag name attached to at least one entry, sorted.
	TagNames(ctx context.Context) ([]string, error)
	Close() error
}
