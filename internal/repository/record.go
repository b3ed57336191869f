package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/schema"
)

// ticketRecord is the persisted row shape. The gorm tags double as the
// table definition for the gorm engine.
type ticketRecord struct {
	ID           int    `gorm:"column:ID;primaryKey;autoIncrement:false"`
	Status       string `gorm:"column:STATUS;type:VARCHAR(10);not null;index:IDX_TMV2_STATUS"`
	Priority     int    `gorm:"column:PRIORITY;type:TINYINT;not null"`
	Creator      string `gorm:"column:CREATOR;type:VARCHAR(255);not null"`
	ActorKey     string `gorm:"column:UUID;type:VARCHAR(36);not null"`
	Assignment   string `gorm:"column:ASSIGNMENT;type:VARCHAR(255);not null"`
	Location     string `gorm:"column:LOCATION;type:VARCHAR(255);not null"`
	CreationTime int64  `gorm:"column:CREATIONTIME;type:BIGINT;not null"`
	Comments     string `gorm:"column:COMMENTS;type:MEDIUMTEXT;not null"`
	Unread       bool   `gorm:"column:UPDATEDBYOTHERUSER;type:BOOLEAN;not null;index:IDX_TMV2_UNREAD"`
}

func (ticketRecord) TableName() string { return schema.TicketTable }

// scanTargets follows schema.Columns.
func (r *ticketRecord) scanTargets() []any {
	return []any{
		&r.ID, &r.Status, &r.Priority, &r.Creator, &r.ActorKey,
		&r.Assignment, &r.Location, &r.CreationTime, &r.Comments, &r.Unread,
	}
}

// values follows schema.Columns.
func (r ticketRecord) values() []any {
	return []any{
		r.ID, r.Status, r.Priority, r.Creator, r.ActorKey,
		r.Assignment, r.Location, r.CreationTime, r.Comments, r.Unread,
	}
}

// columnValues maps every non-key column to its value.
func (r ticketRecord) columnValues() map[string]any {
	return map[string]any{
		schema.ColStatus:       r.Status,
		schema.ColPriority:     r.Priority,
		schema.ColCreator:      r.Creator,
		schema.ColActorKey:     r.ActorKey,
		schema.ColAssignment:   r.Assignment,
		schema.ColLocation:     r.Location,
		schema.ColCreationTime: r.CreationTime,
		schema.ColComments:     r.Comments,
		schema.ColUnread:       r.Unread,
	}
}

type metaRecord struct {
	Key   string `gorm:"column:META_KEY;primaryKey;type:VARCHAR(64)"`
	Value string `gorm:"column:META_VALUE;type:VARCHAR(255);not null"`
}

func (metaRecord) TableName() string { return schema.MetaTable }

func toRecord(t *domain.Ticket) ticketRecord {
	return ticketRecord{
		ID:           t.ID,
		Status:       string(t.Status),
		Priority:     int(domain.ClampPriority(int(t.Priority))),
		Creator:      t.Creator,
		ActorKey:     encodeActorKey(t.ActorKey),
		Assignment:   encodeAssignment(t.Assignment),
		Location:     encodeLocation(t.Location),
		CreationTime: t.CreationTime,
		Comments:     EncodeComments(t.Comments),
		Unread:       t.UnreadByCreator && t.ActorKey != uuid.Nil,
	}
}

func fromRecord(r ticketRecord) (*domain.Ticket, error) {
	status, ok := domain.ParseTicketStatus(r.Status)
	if !ok {
		return nil, fmt.Errorf("ticket %d: unknown status %q", r.ID, r.Status)
	}
	key, err := decodeActorKey(r.ActorKey)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", r.ID, err)
	}
	loc, err := decodeLocation(r.Location)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", r.ID, err)
	}
	comments, err := DecodeComments(r.Comments)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", r.ID, err)
	}
	return &domain.Ticket{
		ID:              r.ID,
		Status:          status,
		Priority:        domain.ClampPriority(r.Priority),
		Creator:         r.Creator,
		ActorKey:        key,
		Assignment:      decodeAssignment(r.Assignment),
		Location:        loc,
		CreationTime:    r.CreationTime,
		Comments:        comments,
		UnreadByCreator: r.Unread && key != uuid.Nil,
	}, nil
}

func fromRecords(records []ticketRecord) ([]*domain.Ticket, error) {
	tickets := make([]*domain.Ticket, 0, len(records))
	for _, r := range records {
		t, err := fromRecord(r)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// EncodeComments renders the comment log in its persisted form.
func EncodeComments(comments []domain.Comment) string {
	var b strings.Builder
	for _, c := range comments {
		b.WriteString(c.Author)
		b.WriteString(domain.CommentSeparator)
		b.WriteString(c.Text)
		b.WriteString(domain.CommentTerminator)
	}
	return b.String()
}

// DecodeComments parses a persisted comment log. A log without the final
// terminator is accepted.
func DecodeComments(blob string) ([]domain.Comment, error) {
	if blob == "" {
		return []domain.Comment{}, nil
	}
	segments := strings.Split(blob, domain.CommentTerminator)
	if segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	comments := make([]domain.Comment, 0, len(segments))
	for i, seg := range segments {
		author, text, ok := strings.Cut(seg, domain.CommentSeparator)
		if !ok {
			return nil, fmt.Errorf("comment %d has no author separator", i)
		}
		comments = append(comments, domain.Comment{Author: author, Text: text})
	}
	return comments, nil
}

func encodeActorKey(key uuid.UUID) string {
	if key == uuid.Nil {
		return schema.NoActorKey
	}
	return key.String()
}

func decodeActorKey(raw string) (uuid.UUID, error) {
	if strings.EqualFold(raw, schema.NoActorKey) {
		return uuid.Nil, nil
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid actor key %q: %w", raw, err)
	}
	return key, nil
}

func encodeAssignment(a string) string {
	if strings.TrimSpace(a) == "" {
		return schema.NoAssignment
	}
	return a
}

func decodeAssignment(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return raw
}

func encodeLocation(loc *domain.Location) string {
	if loc == nil {
		return schema.NoLocation
	}
	return loc.String()
}

// decodeLocation reads "world x y z"; the world name may contain spaces.
func decodeLocation(raw string) (*domain.Location, error) {
	if raw == schema.NoLocation {
		return nil, nil
	}
	parts := strings.Split(raw, " ")
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid location %q", raw)
	}
	n := len(parts)
	coords := make([]int, 3)
	for i, p := range parts[n-3:] {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid location %q: %w", raw, err)
		}
		coords[i] = v
	}
	return &domain.Location{
		World: strings.Join(parts[:n-3], " "),
		X:     coords[0],
		Y:     coords[1],
		Z:     coords[2],
	}, nil
}
