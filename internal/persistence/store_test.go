package persistence

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketmanager/internal/config"
	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/migration"
	"github.com/spec-kit/ticketmanager/internal/repository"
	"github.com/spec-kit/ticketmanager/internal/service"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{Storage: config.StorageConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "data", "tickets.db"),
	}}
}

func TestOpenStoresSQLite(t *testing.T) {
	ctx := context.Background()
	stores, err := OpenStores(ctx, sqliteConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("OpenStores failed: %v", err)
	}
	defer stores.Close()

	if stores.Active.Backend() != repository.BackendSQLite {
		t.Errorf("expected sqlite backend, got %s", stores.Active.Backend())
	}
	if stores.Previous != nil {
		t.Error("expected no previous store")
	}
	if err := stores.Active.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestOpenStoresRejectsMisconfiguration(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "oracle" }, "unknown storage backend"},
		{"mysql without dsn", func(c *config.Config) { c.Storage.Backend = "mysql" }, "MYSQL_DSN"},
		{"postgres without dsn", func(c *config.Config) { c.Storage.Backend = "postgres" }, "POSTGRES_DSN"},
		{"previous postgres without dsn", func(c *config.Config) { c.Storage.PreviousBackend = "postgres" }, "POSTGRES_DSN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sqliteConfig(t)
			tt.mutate(cfg)
			_, err := OpenStores(ctx, cfg, zap.NewNop())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRunMigrationsUpgradesLegacyRows(t *testing.T) {
	ctx := context.Background()
	stores, err := OpenStores(ctx, sqliteConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("OpenStores failed: %v", err)
	}
	defer stores.Close()

	if err := stores.Active.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	legacy := domain.NewTicket(domain.ConsoleActor(), "old row", time.Unix(1_600_000_000, 0))
	legacy.ID = 1
	if err := stores.Active.CreateTicket(ctx, legacy); err != nil {
		t.Fatalf("CreateTicket failed: %v", err)
	}

	manager := migration.NewManager(stores.Active, nil, zap.NewNop())
	gate := service.NewGate()
	if err := RunMigrations(ctx, manager, gate, zap.NewNop()); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	if gate.Closed() {
		t.Error("expected gate open after successful upgrade")
	}
	if req, err := manager.ConversionRequired(ctx); err != nil || req {
		t.Errorf("expected nothing left to convert, got %v %v", req, err)
	}
}

type failingRunner struct{}

func (failingRunner) RunExclusive(func() error) error {
	return apperrors.NewConversionFailure("sqlite", "sqlite", nil)
}

func TestRunMigrationsSkipsGateWhenCurrent(t *testing.T) {
	ctx := context.Background()
	stores, err := OpenStores(ctx, sqliteConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("OpenStores failed: %v", err)
	}
	defer stores.Close()

	manager := migration.NewManager(stores.Active, nil, zap.NewNop())
	if err := RunMigrations(ctx, manager, failingRunner{}, zap.NewNop()); err != nil {
		t.Errorf("expected fresh store to need no conversion, got %v", err)
	}
}
