package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/schema"
	"github.com/spec-kit/ticketmanager/internal/search"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

// GormStore is the networked engine for MySQL. It issues only portable
// SQL through gorm, so any gorm dialect can host it.
type GormStore struct {
	db      *gorm.DB
	backend Backend
}

// NewGormStore wraps an open gorm handle reporting itself as backend.
func NewGormStore(db *gorm.DB, backend Backend) *GormStore {
	return &GormStore{db: db, backend: backend}
}

func (s *GormStore) Backend() Backend { return s.backend }

func (s *GormStore) EnsureSchema(ctx context.Context) error {
	m := s.db.WithContext(ctx).Migrator()
	for _, model := range []any{&ticketRecord{}, &metaRecord{}} {
		if m.HasTable(model) {
			continue
		}
		if err := m.CreateTable(model); err != nil {
			return apperrors.NewStorageFailure("ensure schema", err)
		}
	}
	for _, idx := range []string{schema.IndexStatus, schema.IndexUnread} {
		if m.HasIndex(&ticketRecord{}, idx) {
			continue
		}
		if err := m.CreateIndex(&ticketRecord{}, idx); err != nil {
			return apperrors.NewStorageFailure("ensure schema", err)
		}
	}
	return nil
}

func (s *GormStore) GetTicket(ctx context.Context, id int) (*domain.Ticket, error) {
	var rec ticketRecord
	err := s.db.WithContext(ctx).Where(schema.ColID+" = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
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

func (s *GormStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	rec := toRecord(ticket)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return apperrors.NewStorageFailure("create ticket", err)
	}
	return nil
}

func (s *GormStore) UpdateTicket(ctx context.Context, ticket *domain.Ticket) error {
	rec := toRecord(ticket)
	res := s.db.WithContext(ctx).
		Model(&ticketRecord{}).
		Where(schema.ColID+" = ?", rec.ID).
		Updates(rec.columnValues())
	if res.Error != nil {
		return apperrors.NewStorageFailure("update ticket", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL reports zero affected rows when nothing changed.
	var n int64
	if err := s.db.WithContext(ctx).Model(&ticketRecord{}).Where(schema.ColID+" = ?", rec.ID).Count(&n).Error; err != nil {
		return apperrors.NewStorageFailure("update ticket", err)
	}
	if n == 0 {
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticket.ID})
	}
	return nil
}

func (s *GormStore) NextTicketID(ctx context.Context) (int, error) {
	var max int
	err := s.db.WithContext(ctx).
		Model(&ticketRecord{}).
		Select("COALESCE(MAX(" + schema.ColID + "), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, apperrors.NewStorageFailure("next ticket id", err)
	}
	return max + 1, nil
}

func (s *GormStore) ListOpenTickets(ctx context.Context) ([]*domain.Ticket, error) {
	return s.find(ctx, "list open tickets", whereOpen, openArgs...)
}

func (s *GormStore) ListTicketsByActor(ctx context.Context, key uuid.UUID) ([]*domain.Ticket, error) {
	return s.find(ctx, "list tickets by actor", whereActor, encodeActorKey(key))
}

func (s *GormStore) ListUnreadTickets(ctx context.Context) ([]*domain.Ticket, error) {
	return s.find(ctx, "list unread tickets", whereUnread, true)
}

func (s *GormStore) ListUnreadTicketsForActor(ctx context.Context, key uuid.UUID) ([]*domain.Ticket, error) {
	return s.find(ctx, "list unread tickets for actor", whereUnreadForActor, true, encodeActorKey(key))
}

func (s *GormStore) MassCloseRange(ctx context.Context, low, high int) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&ticketRecord{}).
		Where(schema.ColID+" BETWEEN ? AND ?", low, high).
		Update(schema.ColStatus, string(domain.TicketStatusClosed))
	if res.Error != nil {
		return 0, apperrors.NewStorageFailure("mass close", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Execute(ctx context.Context, plan search.Plan) ([]*domain.Ticket, error) {
	where, args := plan.Where()
	return s.find(ctx, "execute search", where, args...)
}

func (s *GormStore) ScanAll(ctx context.Context) ([]*domain.Ticket, error) {
	return s.find(ctx, "scan tickets", "")
}

func (s *GormStore) CountTickets(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&ticketRecord{}).Count(&n).Error; err != nil {
		return 0, apperrors.NewStorageFailure("count tickets", err)
	}
	return n, nil
}

func (s *GormStore) Wipe(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&ticketRecord{}).Error
	if err != nil {
		return apperrors.NewStorageFailure("wipe tickets", err)
	}
	return nil
}

func (s *GormStore) ReadMeta(ctx context.Context, key string) (string, bool, error) {
	var rec metaRecord
	err := s.db.WithContext(ctx).Where("META_KEY = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageFailure("read meta", err)
	}
	return rec.Value, true, nil
}

func (s *GormStore) WriteMeta(ctx context.Context, key, value string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&metaRecord{Key: key, Value: value}).Error
	if err != nil {
		return apperrors.NewStorageFailure("write meta", err)
	}
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) find(ctx context.Context, op, where string, args ...any) ([]*domain.Ticket, error) {
	q := s.db.WithContext(ctx).Model(&ticketRecord{})
	if where != "" {
		q = q.Where(where, args...)
	}
	var records []ticketRecord
	if err := q.Order(schema.ColID).Find(&records).Error; err != nil {
		return nil, apperrors.NewStorageFailure(op, err)
	}
	tickets, err := fromRecords(records)
	if err != nil {
		return nil, apperrors.NewStorageFailure(op, err)
	}
	return tickets, nil
}
