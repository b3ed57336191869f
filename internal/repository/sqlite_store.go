package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/schema"
	"github.com/spec-kit/ticketmanager/internal/search"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + schema.TicketTable + ` (
		ID INTEGER NOT NULL PRIMARY KEY,
		STATUS VARCHAR(10) NOT NULL,
		PRIORITY TINYINT NOT NULL,
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

// SQLiteStore is the embedded engine, backed by a database/sql handle on
// the modernc.org/sqlite driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Backend() Backend { return BackendSQLite }

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewStorageFailure("ensure schema", err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetTicket(ctx context.Context, id int) (*domain.Ticket, error) {
	var rec ticketRecord
	err := s.db.QueryRowContext(ctx, qSelectByID, id).Scan(rec.scanTargets()...)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if _, err := s.db.ExecContext(ctx, qInsertTicket, toRecord(ticket).values()...); err != nil {
		return apperrors.NewStorageFailure("create ticket", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	rec := toRecord(ticket)
	args := append(rec.values()[1:], rec.ID)
	res, err := s.db.ExecContext(ctx, qUpdateTicket, args...)
	if err != nil {
		return apperrors.NewStorageFailure("update ticket", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStorageFailure("update ticket", err)
	}
	if n == 0 {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticket.ID})
	}
	return nil
}

func (s *SQLiteStore) NextTicketID(ctx context.Context) (int, error) {
	var max int
	if err := s.db.QueryRowContext(ctx, qMaxID).Scan(&max); err != nil {
		return 0, apperrors.NewStorageFailure("next ticket id", err)
	}
	return max + 1, nil
}

func (s *SQLiteStore) ListOpenTickets(ctx context.Context) ([]*domain.Ticket, error) {
	return s.query(ctx, "list open tickets", selectWhere(whereOpen), openArgs...)
}

func (s *SQLiteStore) ListTicketsByActor(ctx context.Context, key uuid.UUID) ([]*domain.Ticket, error) {
	return s.query(ctx, "list tickets by actor", selectWhere(whereActor), encodeActorKey(key))
}

func (s *SQLiteStore) ListUnreadTickets(ctx context.Context) ([]*domain.Ticket, error) {
	return s.query(ctx, "list unread tickets", selectWhere(whereUnread), true)
}

func (s *SQLiteStore) ListUnreadTicketsForActor(ctx context.Context, key uuid.UUID) ([]*domain.Ticket, error) {
	return s.query(ctx, "list unread tickets for actor", selectWhere(whereUnreadForActor), true, encodeActorKey(key))
}

func (s *SQLiteStore) MassCloseRange(ctx context.Context, low, high int) (int64, error) {
	res, err := s.db.ExecContext(ctx, qMassCloseRange, string(domain.TicketStatusClosed), low, high)
	if err != nil {
		return 0, apperrors.NewStorageFailure("mass close", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorageFailure("mass close", err)
	}
	return n, nil
}

func (s *SQLiteStore) Execute(ctx context.Context, plan search.Plan) ([]*domain.Ticket, error) {
	where, args := plan.Where()
	return s.query(ctx, "execute search", selectWhere(where), args...)
}

func (s *SQLiteStore) ScanAll(ctx context.Context) ([]*domain.Ticket, error) {
	return s.query(ctx, "scan tickets", selectWhere(""))
}

func (s *SQLiteStore) CountTickets(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, qCountTickets).Scan(&n); err != nil {
		return 0, apperrors.NewStorageFailure("count tickets", err)
	}
	return n, nil
}

func (s *SQLiteStore) Wipe(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, qWipeTickets); err != nil {
		return apperrors.NewStorageFailure("wipe tickets", err)
	}
	return nil
}

func (s *SQLiteStore) ReadMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, qReadMeta, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageFailure("read meta", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) WriteMeta(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, qWriteMeta, key, value); err != nil {
		return apperrors.NewStorageFailure("write meta", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) query(ctx context.Context, op, query string, args ...any) ([]*domain.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageFailure(op, err)
	}
	defer rows.Close()

	tickets, err := scanSQLRows(rows)
	if err != nil {
		return nil, apperrors.NewStorageFailure(op, err)
	}
	return tickets, nil
}

func scanSQLRows(rows *sql.Rows) ([]*domain.Ticket, error) {
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
