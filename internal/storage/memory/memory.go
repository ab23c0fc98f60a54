// Package memory is an in-process Repository with the same semantics as the
// SQLite store. Nothing is persisted.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"cashbook/internal/core"
	"cashbook/internal/storage"
)

var errDuplicateID = errors.New("entry id already exists")

type Store struct {
	mu    sync.Mutex
	items map[string]core.LedgerEntry
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string]core.LedgerEntry)}
}

// Create stores a copy of e.
func (s *Store) Create(_ context.Context, e core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[e.ID]; ok {
		return core.DatabaseError("insert entry "+e.ID, errDuplicateID)
	}
	s.items[e.ID] = clone(e)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.LedgerEntry{}, core.NotFoundError(id)
	}
	return clone(e), nil
}

// Update replaces every mutable field and the full tag set. The stored entry
// type is kept.
func (s *Store) Update(_ context.Context, e core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.items[e.ID]
	if !ok {
		return core.NotFoundError(e.ID)
	}
	next := clone(e)
	next.Type = old.Type
	next.CreatedAt = old.CreatedAt
	s.items[e.ID] = next
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.NotFoundError(id)
	}
	delete(s.items, id)
	return nil
}

func (s *Store) List(_ context.Context, f core.EntryFilter) ([]core.LedgerEntry, error) {
	f, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	matched := s.match(f)
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return []core.LedgerEntry{}, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *Store) Count(_ context.Context, f core.EntryFilter) (int64, error) {
	f, err := f.Normalize()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.match(f))), nil
}

func (s *Store) TagNames(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	for _, e := range s.items {
		for _, t := range e.Tags {
			seen[t.Name()] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// match must be called with s.mu held.
func (s *Store) match(f core.EntryFilter) []core.LedgerEntry {
	out := make([]core.LedgerEntry, 0, len(s.items))
	for _, e := range s.items {
		if f.Matches(e) {
			out = append(out, clone(e))
		}
	}
	return out
}

func clone(e core.LedgerEntry) core.LedgerEntry {
	e.Tags = append([]core.Tag(nil), e.Tags...)
	return e
}
