// Package ledger is the entry point for reading and changing a ledger. It
// validates dates against the clock, delegates persistence to a
// storage.Repository and announces committed changes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/core"
	"cashbook/internal/log"
	"cashbook/internal/storage"
)

// Publisher receives an event after every committed mutation.
type Publisher interface {
	PublishEntryEvent(ctx context.Context, ev amqp.EntryEvent) error
}

// Manager orchestrates entry operations over one open ledger.
type Manager struct {
	repo      storage.Repository
	publisher Publisher
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*Manager)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithPublisher announces committed changes through p.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(repo storage.Repository, opts ...Option) *Manager {
	m := &Manager{
		repo:   repo,
		now:    time.Now,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent(log.ComponentLedger)
	return m
}

// Now returns the manager's current time in UTC.
func (m *Manager) Now() time.Time { return m.now().UTC() }

func (m *Manager) checkDate(d time.Time) error {
	if d.After(m.Now()) {
		return fmt.Errorf("%w: %s", core.ErrFutureDate, d.UTC().Format(time.RFC3339))
	}
	return nil
}

// Add stores a new entry. Entries dated after now are rejected.
func (m *Manager) Add(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if err := m.checkDate(e.Date); err != nil {
		return core.LedgerEntry{}, err
	}
	if err := m.repo.Create(ctx, e); err != nil {
		m.logger.ErrorContext(ctx, "Failed to add entry", log.NewFields().WithOperation(log.OpCreate).WithEntry(e).WithError(err).ToSlice()...)
		return core.LedgerEntry{}, err
	}

	m.logger.InfoContext(ctx, "Entry added", log.NewFields().WithOperation(log.OpCreate).WithEntry(e).ToSlice()...)
	m.publish(ctx, amqp.ActionCreated, e)
	return e, nil
}

// Get returns the entry with id.
func (m *Manager) Get(ctx context.Context, id string) (core.LedgerEntry, error) {
	return m.repo.Get(ctx, id)
}

// Update replaces an existing entry, stamping UpdatedAt with the current time.
// The stored entry type is never changed.
func (m *Manager) Update(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if err := m.checkDate(e.Date); err != nil {
		return core.LedgerEntry{}, err
	}
	e.UpdatedAt = m.Now()
	if err := m.repo.Update(ctx, e); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			m.logger.ErrorContext(ctx, "Failed to update entry", log.NewFields().WithOperation(log.OpUpdate).WithEntry(e).WithError(err).ToSlice()...)
		}
		return core.LedgerEntry{}, err
	}

	m.logger.InfoContext(ctx, "Entry updated", log.NewFields().WithOperation(log.OpUpdate).WithEntry(e).ToSlice()...)
	m.publish(ctx, amqp.ActionUpdated, e)
	return e, nil
}

// Delete removes the entry with id.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Entry deleted", log.FieldOperation, log.OpDelete, log.FieldEntryID, id)
	m.publish(ctx, amqp.ActionDeleted, core.LedgerEntry{ID: id})
	return nil
}

// List returns the entries matching f, newest first.
func (m *Manager) List(ctx context.Context, f core.EntryFilter) ([]core.LedgerEntry, error) {
	return m.repo.List(ctx, f)
}

// Count returns the number of entries matching f.
func (m *Manager) Count(ctx context.Context, f core.EntryFilter) (int64, error) {
	return m.repo.Count(ctx, f)
}

// GetAll returns every entry in the ledger.
func (m *Manager) GetAll(ctx context.Context) ([]core.LedgerEntry, error) {
	return m.repo.List(ctx, core.EntryFilter{})
}

// TagNames returns the tags in use, sorted.
func (m *Manager) TagNames(ctx context.Context) ([]string, error) {
	return m.repo.TagNames(ctx)
}

// Close closes the repository and, when it can be closed, the publisher.
func (m *Manager) Close() error {
	var errs []error
	if m.repo != nil {
		if err := m.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := m.publisher.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}

// publish never fails the caller: the change is already committed.
func (m *Manager) publish(ctx context.Context, action amqp.Action, e core.LedgerEntry) {
	if m.publisher == nil {
		return
	}
	ev := amqp.NewEntryEvent(action, e.ID, string(e.Type), m.Now())
	if err := m.publisher.PublishEntryEvent(ctx, ev); err != nil {
		m.logger.ErrorContext(ctx, "Failed to publish entry event",
			log.FieldOperation, log.OpPublish,
			log.FieldEntryID, e.ID,
			log.FieldError, err)
	}
}
