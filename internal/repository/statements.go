package repository

import (
	"strconv"
	"strings"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/schema"
)

// SQL text shared by the database/sql and pgx engines. Placeholders are
// written as '?' and rebound for dialects that number them.
var (
	selectColumns = strings.Join(schema.Columns, ", ")

	qSelectByID     = "SELECT " + selectColumns + " FROM " + schema.TicketTable + " WHERE " + schema.ColID + " = ?"
	qInsertTicket   = "INSERT INTO " + schema.TicketTable + " (" + selectColumns + ") VALUES (" + placeholders(len(schema.Columns)) + ")"
	qUpdateTicket   = "UPDATE " + schema.TicketTable + " SET " + assignments(schema.Columns[1:]) + " WHERE " + schema.ColID + " = ?"
	qMaxID          = "SELECT COALESCE(MAX(" + schema.ColID + "), 0) FROM " + schema.TicketTable
	qCountTickets   = "SELECT COUNT(*) FROM " + schema.TicketTable
	qWipeTickets    = "DELETE FROM " + schema.TicketTable
	qMassCloseRange = "UPDATE " + schema.TicketTable + " SET " + schema.ColStatus + " = ? WHERE " + schema.ColID + " BETWEEN ? AND ?"
	qReadMeta       = "SELECT META_VALUE FROM " + schema.MetaTable + " WHERE META_KEY = ?"
	// ON CONFLICT upsert is understood by both SQLite and Postgres.
	qWriteMeta = "INSERT INTO " + schema.MetaTable + " (META_KEY, META_VALUE) VALUES (?, ?) " +
		"ON CONFLICT (META_KEY) DO UPDATE SET META_VALUE = excluded.META_VALUE"

	whereOpen           = schema.ColStatus + " = ?"
	whereActor          = schema.ColActorKey + " = ?"
	whereUnread         = schema.ColUnread + " = ?"
	whereUnreadForActor = schema.ColUnread + " = ? AND " + schema.ColActorKey + " = ?"
)

var openArgs = []any{string(domain.TicketStatusOpen)}

// selectWhere builds an id-ordered select with an optional filter.
func selectWhere(where string) string {
	q := "SELECT " + selectColumns + " FROM " + schema.TicketTable
	if where != "" {
		q += " WHERE " + where
	}
	return q + " ORDER BY " + schema.ColID
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func assignments(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " = ?"
	}
	return strings.Join(parts, ", ")
}

// rebindDollar rewrites '?' placeholders as $1..$n, leaving quoted literals
// untouched.
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
