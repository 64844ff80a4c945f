package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docmodel/core"
	"github.com/poiesic/docmodel/storage"
)

// Config holds configuration for a migration.
type Config struct {
	// BatchSize is the number of documents read per batch.
	BatchSize int

	// ReportInterval is how many documents pass between progress records.
	ReportInterval int

	// MaxRetries is the number of attempts per document update.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Migrator applies one update document to every document matching a filter.
type Migrator struct {
	store   storage.Store
	filter  core.Document
	update  core.Document
	config  *Config
	backoff Backoff
	logger  *slog.Logger
}

// NewMigrator creates a migrator. Progress records go to logger, or to
// slog.Default() when logger is nil.
func NewMigrator(store storage.Store, filter, update core.Document, config *Config, logger *slog.Logger) (*Migrator, error) {
	if len(update) == 0 {
		return nil, ErrUpdateRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{
		store:   store,
		filter:  filter,
		update:  update,
		config:  config,
		backoff: Backoff{Attempts: config.MaxRetries, Delay: config.RetryDelay, MaxDelay: 30 * config.RetryDelay},
		logger:  logger,
	}, nil
}

// Run executes the migration. On failure the returned Stats cover the
// documents handled before it.
func (m *Migrator) Run(ctx context.Context) (Stats, error) {
	matched, err := m.store.Count(ctx, m.filter)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count documents: %w", err)
	}
	m.logger.Info("migration started", "matched", matched, "batch_size", m.config.BatchSize)

	p := newProgress(m.logger, matched, m.config.ReportInterval)
	err = NewDocumentIterator(m.store, m.filter, m.config.BatchSize).ForEach(ctx, func(docs []core.Document) error {
		updated := 0
		for i, doc := range docs {
			n, err := m.apply(ctx, doc.ID())
			if err != nil {
				p.advance(i, updated)
				return fmt.Errorf("failed to update document %s: %w", doc.ID(), err)
			}
			updated += n
		}
		p.advance(len(docs), updated)
		return nil
	})
	if err != nil {
		return p.stats, err
	}
	return p.finish(), nil
}

func (m *Migrator) apply(ctx context.Context, id string) (int, error) {
	var n int
	attempt := 0
	err := m.backoff.Do(ctx, func(ctx context.Context) error {
		attempt++
		var err error
		n, err = m.store.Update(ctx, core.Document{core.IDField: id}, m.update, storage.UpdateOptions{})
		if err != nil {
			m.logger.Debug("document update failed", "id", id, "attempt", attempt, "err", err)
		}
		return err
	})
	return n, err
}
