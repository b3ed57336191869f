// Package migration keeps the active store's schema current and moves
// tickets between engines.
package migration

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/repository"
	"github.com/spec-kit/ticketmanager/internal/schema"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

// Requirement names the kind of conversion a store needs.
type Requirement string

const (
	RequirementNone          Requirement = "none"
	RequirementBackendChange Requirement = "backend_change"
	RequirementLegacySchema  Requirement = "legacy_schema"
)

// Manager owns schema creation and conversion for the active store.
// previous is the store that held the data before a backend switch and
// may be nil.
type Manager struct {
	active   repository.TicketStore
	previous repository.TicketStore
	logger   *zap.Logger
}

// NewManager creates a manager.
func NewManager(active, previous repository.TicketStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{active: active, previous: previous, logger: logger}
}

// EnsureSchema creates missing relations on the active and previous stores
// and stamps the schema version on an empty active store.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	if err := m.active.EnsureSchema(ctx); err != nil {
		return err
	}
	if m.previous != nil {
		if err := m.previous.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	if _, ok, err := m.active.ReadMeta(ctx, schema.MetaSchemaVersion); err != nil || ok {
		return err
	}
	n, err := m.active.CountTickets(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return m.active.WriteMeta(ctx, schema.MetaSchemaVersion, strconv.Itoa(schema.Version))
}

// Requirement reports which conversion, if any, the active store needs.
func (m *Manager) Requirement(ctx context.Context) (Requirement, error) {
	if m.previous != nil && m.previous.Backend() != m.active.Backend() {
		marker, ok, err := m.active.ReadMeta(ctx, schema.MetaConvertedFrom)
		if err != nil {
			return RequirementNone, err
		}
		if !ok || marker != string(m.previous.Backend()) {
			n, err := m.previous.CountTickets(ctx)
			if err != nil {
				return RequirementNone, err
			}
			if n > 0 {
				return RequirementBackendChange, nil
			}
		}
	}

	raw, ok, err := m.active.ReadMeta(ctx, schema.MetaSchemaVersion)
	if err != nil {
		return RequirementNone, err
	}
	if !ok {
		n, err := m.active.CountTickets(ctx)
		if err != nil {
			return RequirementNone, err
		}
		if n > 0 {
			return RequirementLegacySchema, nil
		}
		return RequirementNone, nil
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return RequirementNone, apperrors.NewStorageFailure("read schema version", err)
	}
	if version < schema.Version {
		return RequirementLegacySchema, nil
	}
	return RequirementNone, nil
}

// ConversionRequired reports whether Run has work to do.
func (m *Manager) ConversionRequired(ctx context.Context) (bool, error) {
	req, err := m.Requirement(ctx)
	return req != RequirementNone, err
}

// Run performs whatever conversion Requirement reports. Callers must hold
// ticket mutations off for its whole duration.
func (m *Manager) Run(ctx context.Context) error {
	req, err := m.Requirement(ctx)
	if err != nil {
		return err
	}
	switch req {
	case RequirementBackendChange:
		return m.Convert(ctx, m.previous, m.active)
	case RequirementLegacySchema:
		return m.Upgrade(ctx)
	}
	return nil
}

// Convert copies every ticket from source into destination, replacing
// whatever destination held. Source is only read. A failure leaves
// destination in an undefined state and is returned as ConversionFailure.
func (m *Manager) Convert(ctx context.Context, source, destination repository.TicketStore) error {
	if source == nil || destination == nil {
		return apperrors.NewConversionFailure("?", "?", errors.New("conversion needs both a source and a destination store"))
	}
	from, to := string(source.Backend()), string(destination.Backend())
	fail := func(err error) error {
		m.logger.Error("conversion failed", zap.String("from", from), zap.String("to", to), zap.Error(err))
		return apperrors.NewConversionFailure(from, to, err)
	}

	m.logger.Info("conversion started", zap.String("from", from), zap.String("to", to))

	tickets, err := source.ScanAll(ctx)
	if err != nil {
		return fail(err)
	}
	if err := destination.Wipe(ctx); err != nil {
		return fail(err)
	}
	for _, t := range tickets {
		if err := destination.CreateTicket(ctx, normalize(t)); err != nil {
			return fail(err)
		}
	}
	if err := destination.WriteMeta(ctx, schema.MetaConvertedFrom, from); err != nil {
		return fail(err)
	}
	if err := destination.WriteMeta(ctx, schema.MetaSchemaVersion, strconv.Itoa(schema.Version)); err != nil {
		return fail(err)
	}

	m.logger.Info("conversion finished", zap.String("from", from), zap.String("to", to), zap.Int("tickets", len(tickets)))
	return nil
}

// Upgrade rewrites every row of the active store in the current encoding
// and stamps the schema version.
func (m *Manager) Upgrade(ctx context.Context) error {
	backend := string(m.active.Backend())
	fail := func(err error) error {
		m.logger.Error("schema upgrade failed", zap.String("backend", backend), zap.Error(err))
		return apperrors.NewConversionFailure(backend, backend, err)
	}

	tickets, err := m.active.ScanAll(ctx)
	if err != nil {
		return fail(err)
	}
	for _, t := range tickets {
		if err := m.active.UpdateTicket(ctx, normalize(t)); err != nil {
			return fail(err)
		}
	}
	if err := m.active.WriteMeta(ctx, schema.MetaSchemaVersion, strconv.Itoa(schema.Version)); err != nil {
		return fail(err)
	}
	m.logger.Info("schema upgraded", zap.String("backend", backend), zap.Int("tickets", len(tickets)))
	return nil
}

// normalize re-applies the model's input rules to a decoded ticket.
func normalize(t *domain.Ticket) *domain.Ticket {
	out := t.Clone()
	out.Priority = domain.ClampPriority(int(t.Priority))
	out.Comments = nil
	for _, c := range t.Comments {
		out.AppendComment(c.Author, c.Text)
	}
	if out.ActorKey == uuid.Nil {
		out.UnreadByCreator = false
	}
	return out
}
