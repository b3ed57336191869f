package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/schema"
	"github.com/spec-kit/ticketmanager/internal/search"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + schema.TicketTable + ` (
		ID INTEGER NOT NULL PRIMARY KEY,
		STATUS VARCHAR(10) NOT NULL,
		PRIORITY SMALLINT NOT NULL,
		CREATOR VARCHAR(255) NOT NULL,
		UUID VARCHAR(36) NOT NULL,
		ASSIGNMENT VARCHAR(255) NOT NULL,
		LOCATION VARCHAR(255) NOT NULL,
		CREATIONTIME BIGINT NOT NULL,
		COMMENTS TEXT NOT NULL,
		UPDATEDBYOTHERUSER BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS ` + schema.IndexStatus + ` ON ` + schema.TicketTable + ` (STATUS)`,
	`CREATE INDEX IF NOT EXISTS ` + schema.IndexUnread + ` ON ` + schema.TicketTable + ` (UPDATEDBYOTHERUSER)`,
	`CREATE TABLE IF NOT EXISTS ` + schema.MetaTable + ` (
		META_KEY VARCHAR(64) NOT NULL PRIMARY KEY,
		META_VALUE VARCHAR(255) NOT NULL
	)`,
}

// PostgresStore is the networked engine for PostgreSQL on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore instantiates the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Backend() Backend { return BackendPostgres }

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return apperrors.NewStorageFailure("ensure schema", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetTicket(ctx context.Context, id int) (*domain.Ticket, error) {
	var rec ticketRecord
	err := s.pool.QueryRow(ctx, rebindDollar(qSelectByID), id).Scan(rec.scanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	if err != nil {
		return nil, apperrors.NewStorageFailure("get ticket", err)
	}
	t, err := fromRecord(rec)
	if err != nil {
		return nil, apperrors.NewStorageFailure("decode ticket", err)
	}
	return t, nil
}

func (s *PostgresStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if _, err := s.pool.Exec(ctx, rebindDollar(qInsertTicket), toRecord(ticket).values()...); err != nil {
		return apperrors.NewStorageFailure("create ticket", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	rec := toRecord(ticket)
	args := append(rec.values()[1:], rec.ID)
	cmd, err := s.pool.Exec(ctx, rebindDollar(qUpdateTicket), args...)
	if err != nil {
		return apperrors.NewStorageFailure("update ticket", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticket.ID})
	}
	return nil
}

func (s *PostgresStore) NextTicketID(ctx context.Context) (int, error) {
	var max int
	if err := s.pool.QueryRow(ctx, qMaxID).Scan(&max); err != nil {
		return 0, apperrors.NewStorageFailure("next ticket id", err)
	}
	return max + 1, nil
}

func (s *PostgresStore) ListOpenTickets(ctx context.Context) ([]*domain.Ticket, error) {
	return s.query(ctx, "list open tickets", selectWhere(whereOpen), openArgs...)
}

func (s *PostgresStore) ListTicketsByActor(ctx context.Context, key uuid.UUID) ([]*domain.Ticket, error) {
	return s.query(ctx, "list tickets by actor", selectWhere(whereActor), encodeActorKey(key))
}

func (s *PostgresStore) ListUnreadTickets(ctx context.Context) ([]*domain.Ticket, error) {
	return s.query(ctx, "list unread tickets", selectWhere(whereUnread), true)
}

func (s *PostgresStore) ListUnreadTicketsForActor(ctx context.Context, key uuid.UUID) ([]*domain.Ticket, error) {
	return s.query(ctx, "list unread tickets for actor", selectWhere(whereUnreadForActor), true, encodeActorKey(key))
}

func (s *PostgresStore) MassCloseRange(ctx context.Context, low, high int) (int64, error) {
	cmd, err := s.pool.Exec(ctx, rebindDollar(qMassCloseRange), string(domain.TicketStatusClosed), low, high)
	if err != nil {
		return 0, apperrors.NewStorageFailure("mass close", err)
	}
	return cmd.RowsAffected(), nil
}

func (s *PostgresStore) Execute(ctx context.Context, plan search.Plan) ([]*domain.Ticket, error) {
	where, args := plan.Where()
	return s.query(ctx, "execute search", selectWhere(where), args...)
}

func (s *PostgresStore) ScanAll(ctx context.Context) ([]*domain.Ticket, error) {
	return s.query(ctx, "scan tickets", selectWhere(""))
}

func (s *PostgresStore) CountTickets(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, qCountTickets).Scan(&n); err != nil {
		return 0, apperrors.NewStorageFailure("count tickets", err)
	}
	return n, nil
}

func (s *PostgresStore) Wipe(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, qWipeTickets); err != nil {
		return apperrors.NewStorageFailure("wipe tickets", err)
	}
	return nil
}

func (s *PostgresStore) ReadMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, rebindDollar(qReadMeta), key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageFailure("read meta", err)
	}
	return value, true, nil
}

func (s *PostgresStore) WriteMeta(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, rebindDollar(qWriteMeta), key, value); err != nil {
		return apperrors.NewStorageFailure("write meta", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Ticket, error) {
	rows, err := s.pool.Query(ctx, rebindDollar(query), args...)
	if err != nil {
		return nil, apperrors.NewStorageFailure(op, err)
	}
	defer rows.Close()

	tickets, err := scanPgxRows(rows)
	if err != nil {
		return nil, apperrors.NewStorageFailure(op, err)
	}
	return tickets, nil
}

func scanPgxRows(rows pgx.Rows) ([]*domain.Ticket, error) {
	result := []*domain.Ticket{}
	for rows.Next() {
		var rec ticketRecord
		if err := rows.Scan(rec.scanTargets()...); err != nil {
			return nil, err
		}
		t, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
