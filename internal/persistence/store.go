package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketmanager/internal/config"
	"github.com/spec-kit/ticketmanager/internal/repository"
)

// OpenStore connects the engine selected by backend. The returned store owns
// its connection and releases it on Close.
func OpenStore(ctx context.Context, cfg *config.Config, backend repository.Backend, logger *zap.Logger) (repository.TicketStore, error) {
	switch backend {
	case repository.BackendSQLite:
		db, err := OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("opened sqlite store", zap.String("path", cfg.Storage.SQLitePath))
		return repository.NewSQLiteStore(db), nil

	case repository.BackendMySQL:
		db, err := OpenMySQL(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		logger.Info("connected to mysql")
		return repository.NewGormStore(db, repository.BackendMySQL), nil

	case repository.BackendPostgres:
		pool, err := NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("connected to postgres")
		return repository.NewPostgresStore(pool), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

// Stores is the active store plus, during a backend switch, the store that
// held the data before.
type Stores struct {
	Active   repository.TicketStore
	Previous repository.TicketStore
}

// OpenStores opens the configured active store and, when a different
// previous backend is configured, that store too.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	active, err := repository.ParseBackend(cfg.Storage.Backend)
	if err != nil {
		return nil, err
	}
	stores := &Stores{}
	if stores.Active, err = OpenStore(ctx, cfg, active, logger); err != nil {
		return nil, err
	}

	if cfg.Storage.PreviousBackend == "" {
		return stores, nil
	}
	previous, err := repository.ParseBackend(cfg.Storage.PreviousBackend)
	if err != nil {
		stores.Close()
		return nil, err
	}
	if previous == active {
		logger.Warn("previous backend equals active backend; nothing to convert", zap.String("backend", string(active)))
		return stores, nil
	}
	if stores.Previous, err = OpenStore(ctx, cfg, previous, logger); err != nil {
		stores.Close()
		return nil, fmt.Errorf("open previous %s store: %w", previous, err)
	}
	return stores, nil
}

// Close releases every opened store.
func (s *Stores) Close() {
	if s.Previous != nil {
		_ = s.Previous.Close()
	}
	if s.Active != nil {
		_ = s.Active.Close()
	}
}
