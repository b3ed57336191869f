package repository

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketmanager/internal/schema"
)

func TestRebindDollar(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"ID = ?", "ID = $1"},
		{"STATUS = ? AND PRIORITY = ?", "STATUS = $1 AND PRIORITY = $2"},
		{"(LOCATION LIKE ? ESCAPE '!' AND LOCATION <> ?)", "(LOCATION LIKE $1 ESCAPE '!' AND LOCATION <> $2)"},
		{"X = '?' AND Y = ?", "X = '?' AND Y = $1"},
	}
	for _, tt := range tests {
		if got := rebindDollar(tt.in); got != tt.want {
			t.Errorf("rebindDollar(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestUpdateStatementBindsIDLast(t *testing.T) {
	want := "UPDATE TicketManagerTicketsV2 SET STATUS = $1, PRIORITY = $2, CREATOR = $3, UUID = $4, ASSIGNMENT = $5, " +
		"LOCATION = $6, CREATIONTIME = $7, COMMENTS = $8, UPDATEDBYOTHERUSER = $9 WHERE ID = $10"
	if got := rebindDollar(qUpdateTicket); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

// openPostgresStore connects to TICKETMANAGER_TEST_POSTGRES_DSN and resets the
// ticket relations.
func openPostgresStore(t *testing.T) TicketStore {
	t.Helper()
	dsn := os.Getenv("TICKETMANAGER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TICKETMANAGER_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, table := range []string{schema.TicketTable, schema.MetaTable} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			t.Fatalf("Failed to drop %s: %v", table, err)
		}
	}
	store := NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return store
}

func TestPostgresStoreContract(t *testing.T) {
	if os.Getenv("TICKETMANAGER_TEST_POSTGRES_DSN") == "" {
		t.Skip("TICKETMANAGER_TEST_POSTGRES_DSN not set")
	}
	runStoreContract(t, openPostgresStore)
}
