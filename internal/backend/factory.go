package backend

import (
	"context"
	"fmt"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
	"cashbook/internal/storage"
	"cashbook/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	now    func() time.Time
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		now:    time.Now,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var repo storage.Repository
	switch config.Type {
	case SQLiteBackend:
		sqliteRepo, err := storage.OpenLedger(config.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", log.FieldLedger, config.LedgerPath)
		repo = sqliteRepo
	case MemoryBackend:
		repo = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	opts := []ledger.Option{
		ledger.WithLogger(f.logger),
		ledger.WithClock(f.now),
	}

	// Entry events are optional: a broker that cannot be reached only
	// disables publishing.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
			amqpClient = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, ledger.WithPublisher(amqpClient))
		}
	}

	manager := ledger.NewManager(repo, opts...)
	return &BackendResult{
		Backend:       manager,
		Cleanup:       manager.Close,
		EventsEnabled: amqpClient != nil,
	}, nil
}
