package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketmanager/internal/migration"
)

// exclusiveRunner runs fn while every ticket operation is held off.
type exclusiveRunner interface {
	RunExclusive(fn func() error) error
}

// RunMigrations creates missing relations and performs any pending
// conversion under gate. A failed conversion leaves gate closed.
func RunMigrations(ctx context.Context, manager *migration.Manager, gate exclusiveRunner, logger *zap.Logger) error {
	if err := manager.EnsureSchema(ctx); err != nil {
		return err
	}

	req, err := manager.Requirement(ctx)
	if err != nil {
		return err
	}
	if req == migration.RequirementNone {
		logger.Info("schema up to date")
		return nil
	}

	logger.Warn("conversion required; ticket operations suspended", zap.String("requirement", string(req)))
	return gate.RunExclusive(func() error {
		return manager.Run(ctx)
	})
}
