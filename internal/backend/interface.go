package backend

import (
	"context"

	"cashbook/internal/core"
	"cashbook/internal/ledger"
)

// Backend represents the ledger operations available to front-ends.
type Backend interface {
	Add(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
	Get(ctx context.Context, id string) (core.LedgerEntry, error)
	Update(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f core.EntryFilter) ([]core.LedgerEntry, error)
	Count(ctx context.Context, f core.EntryFilter) (int64, error)
	TagNames(ctx context.Context) ([]string, error)
}

var _ Backend = (*ledger.Manager)(nil)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	// EventsEnabled reports whether committed changes are published over AMQP.
	EventsEnabled bool
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	LedgerPath string

	// Optional entry events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
