package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/search"
)

// Backend identifies a storage engine.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendMySQL    Backend = "mysql"
	BackendPostgres Backend = "postgres"
)

// ParseBackend accepts any casing of a known backend name.
func ParseBackend(raw string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(raw))); b {
	case BackendSQLite, BackendMySQL, BackendPostgres:
		return b, nil
	}
	return "", fmt.Errorf("unknown storage backend %q", raw)
}

// TicketStore is the contract every storage engine satisfies. Lookups of a
// missing id fail with NotFound; any other failure is a StorageFailure.
type TicketStore interface {
	Backend() Backend

	// EnsureSchema creates the ticket and meta relations and their indexes
	// when absent. It is safe to call on every startup.
	EnsureSchema(ctx context.Context) error

	GetTicket(ctx context.Context, id int) (*domain.Ticket, error)
	// CreateTicket inserts a ticket whose id was taken from NextTicketID.
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	// UpdateTicket overwrites every column of the row keyed by ticket.ID.
	UpdateTicket(ctx context.Context, ticket *domain.Ticket) error
	// NextTicketID returns max(id)+1, or 1 for an empty store.
	NextTicketID(ctx context.Context) (int, error)

	ListOpenTickets(ctx context.Context) ([]*domain.Ticket, error)
	ListTicketsByActor(ctx context.Context, key uuid.UUID) ([]*domain.Ticket, error)
	ListUnreadTickets(ctx context.Context) ([]*domain.Ticket, error)
	ListUnreadTicketsForActor(ctx context.Context, key uuid.UUID) ([]*domain.Ticket, error)

	// MassCloseRange closes every ticket with low <= id <= high in one
	// statement and returns the number of rows touched.
	MassCloseRange(ctx context.Context, low, high int) (int64, error)

	// Execute runs a compiled search plan. Results are ordered by id.
	Execute(ctx context.Context, plan search.Plan) ([]*domain.Ticket, error)

	ScanAll(ctx context.Context) ([]*domain.Ticket, error)
	CountTickets(ctx context.Context) (int64, error)
	// Wipe deletes every ticket row.
	Wipe(ctx context.Context) error

	ReadMeta(ctx context.Context, key string) (string, bool, error)
	WriteMeta(ctx context.Context, key, value string) error

	Ping(ctx context.Context) error
	Close() error
}
