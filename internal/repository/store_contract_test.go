package repository

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/search"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

var (
	steveKey = uuid.MustParse("4a0d2c1e-7a43-4c39-9f0b-3f1e5d2a6b10")
	alexKey  = uuid.MustParse("9b8e7d6c-5a4b-4c3d-8e2f-1a0b9c8d7e6f")
	modKey   = uuid.MustParse("11111111-2222-4333-8444-555555555555")
	baseTime = time.Unix(1_700_000_000, 0)
)

func fixtureTicket(id int, key uuid.UUID, name string, loc *domain.Location, message string, age time.Duration) *domain.Ticket {
	t := domain.NewTicket(domain.Actor{Key: key, Name: name, Location: loc}, message, baseTime.Add(-age))
	t.ID = id
	return t
}

func seedStore(t *testing.T, store TicketStore) []*domain.Ticket {
	t.Helper()
	ctx := context.Background()

	steve := fixtureTicket(1, steveKey, "Steve", &domain.Location{World: "world", X: 10, Y: 64, Z: -20}, "Lava everywhere near spawn", time.Hour)
	steve.AppendComment("Mod", "On my way")
	steve.Assignment = "Mod"
	steve.RecordMutation(modKey)

	alex := fixtureTicket(2, alexKey, "Alex", &domain.Location{World: "world_nether", X: 1, Y: 2, Z: 3}, "Someone griefed my base", 3*24*time.Hour)
	alex.Priority = 5

	console := fixtureTicket(3, uuid.Nil, domain.ConsoleName, nil, "Scheduled backup failed", 10*24*time.Hour)
	console.Status = domain.TicketStatusClosed

	tickets := []*domain.Ticket{steve, alex, console}
	for _, tk := range tickets {
		if err := store.CreateTicket(ctx, tk); err != nil {
			t.Fatalf("CreateTicket(%d) failed: %v", tk.ID, err)
		}
	}
	return tickets
}

func ticketIDs(tickets []*domain.Ticket) []int {
	ids := make([]int, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
	}
	return ids
}

// runStoreContract exercises every TicketStore operation against one engine.
func runStoreContract(t *testing.T, open func(t *testing.T) TicketStore) {
	ctx := context.Background()

	t.Run("ensure schema is idempotent", func(t *testing.T) {
		store := open(t)
		if err := store.EnsureSchema(ctx); err != nil {
			t.Fatalf("second EnsureSchema failed: %v", err)
		}
	})

	t.Run("next ticket id", func(t *testing.T) {
		store := open(t)
		id, err := store.NextTicketID(ctx)
		if err != nil {
			t.Fatalf("NextTicketID failed: %v", err)
		}
		if id != 1 {
			t.Errorf("expected 1 on empty store, got %d", id)
		}
		for _, k := range []int{5, 2} {
			if err := store.CreateTicket(ctx, fixtureTicket(k, steveKey, "Steve", nil, "hi", 0)); err != nil {
				t.Fatalf("CreateTicket(%d) failed: %v", k, err)
			}
		}
		id, err = store.NextTicketID(ctx)
		if err != nil {
			t.Fatalf("NextTicketID failed: %v", err)
		}
		if id != 6 {
			t.Errorf("expected 6 after inserting 5 and 2, got %d", id)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		store := open(t)
		seeded := seedStore(t, store)
		for _, want := range seeded {
			got, err := store.GetTicket(ctx, want.ID)
			if err != nil {
				t.Fatalf("GetTicket(%d) failed: %v", want.ID, err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ticket %d mismatch:\nexpected %+v\ngot      %+v", want.ID, want, got)
			}
		}
	})

	t.Run("round trip with delimiter fragments", func(t *testing.T) {
		store := open(t)
		tk := fixtureTicket(1, steveKey, "Steve/MySQLSep", nil, "MySQLNewLine/starts oddly", 0)
		tk.AppendComment("Mod", "ends oddly/MySQLNewLine")
		tk.AppendComment("Admin/MySQLNewLine", "")
		if err := store.CreateTicket(ctx, tk); err != nil {
			t.Fatalf("CreateTicket failed: %v", err)
		}
		got, err := store.GetTicket(ctx, 1)
		if err != nil {
			t.Fatalf("GetTicket failed: %v", err)
		}
		if !reflect.DeepEqual(got.Comments, tk.Comments) {
			t.Errorf("expected comments %+v, got %+v", tk.Comments, got.Comments)
		}
	})

	t.Run("missing ticket", func(t *testing.T) {
		store := open(t)
		if _, err := store.GetTicket(ctx, 42); !apperrors.IsNotFound(err) {
			t.Errorf("expected NotFound, got %v", err)
		}
		if err := store.UpdateTicket(ctx, fixtureTicket(42, steveKey, "Steve", nil, "x", 0)); !apperrors.IsNotFound(err) {
			t.Errorf("expected NotFound on update, got %v", err)
		}
	})

	t.Run("update overwrites the full row", func(t *testing.T) {
		store := open(t)
		seedStore(t, store)

		tk, err := store.GetTicket(ctx, 2)
		if err != nil {
			t.Fatalf("GetTicket failed: %v", err)
		}
		tk.Status = domain.TicketStatusClosed
		tk.Priority = 1
		tk.Assignment = "Helper"
		tk.AppendComment("Helper", "fixed")
		tk.RecordMutation(modKey)
		if err := store.UpdateTicket(ctx, tk); err != nil {
			t.Fatalf("UpdateTicket failed: %v", err)
		}
		if err := store.UpdateTicket(ctx, tk); err != nil {
			t.Fatalf("UpdateTicket with unchanged row failed: %v", err)
		}
		got, err := store.GetTicket(ctx, 2)
		if err != nil {
			t.Fatalf("GetTicket failed: %v", err)
		}
		if !reflect.DeepEqual(got, tk) {
			t.Errorf("expected %+v, got %+v", tk, got)
		}
	})

	t.Run("listings", func(t *testing.T) {
		store := open(t)
		seedStore(t, store)

		openTickets, err := store.ListOpenTickets(ctx)
		if err != nil {
			t.Fatalf("ListOpenTickets failed: %v", err)
		}
		if got := ticketIDs(openTickets); !reflect.DeepEqual(got, []int{1, 2}) {
			t.Errorf("expected open [1 2], got %v", got)
		}

		byActor, err := store.ListTicketsByActor(ctx, alexKey)
		if err != nil {
			t.Fatalf("ListTicketsByActor failed: %v", err)
		}
		if got := ticketIDs(byActor); !reflect.DeepEqual(got, []int{2}) {
			t.Errorf("expected alex [2], got %v", got)
		}

		console, err := store.ListTicketsByActor(ctx, uuid.Nil)
		if err != nil {
			t.Fatalf("ListTicketsByActor(console) failed: %v", err)
		}
		if got := ticketIDs(console); !reflect.DeepEqual(got, []int{3}) {
			t.Errorf("expected console [3], got %v", got)
		}

		unread, err := store.ListUnreadTickets(ctx)
		if err != nil {
			t.Fatalf("ListUnreadTickets failed: %v", err)
		}
		if got := ticketIDs(unread); !reflect.DeepEqual(got, []int{1}) {
			t.Errorf("expected unread [1], got %v", got)
		}

		mine, err := store.ListUnreadTicketsForActor(ctx, steveKey)
		if err != nil {
			t.Fatalf("ListUnreadTicketsForActor failed: %v", err)
		}
		if got := ticketIDs(mine); !reflect.DeepEqual(got, []int{1}) {
			t.Errorf("expected steve unread [1], got %v", got)
		}
		none, err := store.ListUnreadTicketsForActor(ctx, alexKey)
		if err != nil {
			t.Fatalf("ListUnreadTicketsForActor failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no unread tickets for alex, got %v", ticketIDs(none))
		}
	})

	t.Run("mass close range", func(t *testing.T) {
		store := open(t)
		seedStore(t, store)
		for id := 4; id <= 6; id++ {
			if err := store.CreateTicket(ctx, fixtureTicket(id, alexKey, "Alex", nil, "more", 0)); err != nil {
				t.Fatalf("CreateTicket(%d) failed: %v", id, err)
			}
		}

		n, err := store.MassCloseRange(ctx, 2, 5)
		if err != nil {
			t.Fatalf("MassCloseRange failed: %v", err)
		}
		if n != 4 {
			t.Errorf("expected 4 rows touched, got %d", n)
		}
		openTickets, err := store.ListOpenTickets(ctx)
		if err != nil {
			t.Fatalf("ListOpenTickets failed: %v", err)
		}
		if got := ticketIDs(openTickets); !reflect.DeepEqual(got, []int{1, 6}) {
			t.Errorf("expected open [1 6], got %v", got)
		}
	})

	t.Run("execute search plans", func(t *testing.T) {
		store := open(t)
		seedStore(t, store)
		compiler := search.NewCompiler(func() time.Time { return baseTime })

		tests := []struct {
			tokens []string
			want   []int
		}{
			{nil, []int{1, 2, 3}},
			{[]string{"foo:bar"}, []int{1, 2, 3}},
			{[]string{"status:open"}, []int{1, 2}},
			{[]string{"status:CLOSED"}, []int{3}},
			{[]string{"priority:5"}, []int{2}},
			{[]string{"priority:3", "status:OPEN"}, []int{1}},
			{[]string{"priority:9"}, []int{}},
			{[]string{"priority:0"}, []int{}},
			{[]string{"priority:-3"}, []int{}},
			{[]string{"creator:Alex"}, []int{2}},
			{[]string{"assignedto:Mod"}, []int{1}},
			{[]string{"assignedto:null"}, []int{2, 3}},
			{[]string{"world:world"}, []int{1, 2}},
			{[]string{"world:world_"}, []int{2}},
			{[]string{"world:No"}, []int{}},
			{[]string{"time:2h"}, []int{1}},
			{[]string{"time:1w"}, []int{1, 2}},
			{[]string{"keywords:LAVA,spawn"}, []int{1}},
			{[]string{"keywords:lava,griefed"}, []int{}},
			{[]string{"keywords:my way"}, []int{1}},
			{[]string{"keywords:100%"}, []int{}},
			{[]string{"keywords:MySQLSep"}, []int{}},
			{[]string{"keywords:mysqlnewline"}, []int{}},
		}
		for _, tt := range tests {
			plan, err := compiler.Compile(tt.tokens)
			if err != nil {
				t.Fatalf("Compile(%v) failed: %v", tt.tokens, err)
			}
			got, err := store.Execute(ctx, plan)
			if err != nil {
				t.Fatalf("Execute(%v) failed: %v", tt.tokens, err)
			}
			if ids := ticketIDs(got); !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("tokens %v: expected %v, got %v", tt.tokens, tt.want, ids)
			}
		}
	})

	t.Run("scan count wipe", func(t *testing.T) {
		store := open(t)
		seedStore(t, store)

		all, err := store.ScanAll(ctx)
		if err != nil {
			t.Fatalf("ScanAll failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 rows, got %d", len(all))
		}
		n, err := store.CountTickets(ctx)
		if err != nil {
			t.Fatalf("CountTickets failed: %v", err)
		}
		if n != 3 {
			t.Errorf("expected count 3, got %d", n)
		}
		if err := store.Wipe(ctx); err != nil {
			t.Fatalf("Wipe failed: %v", err)
		}
		n, err = store.CountTickets(ctx)
		if err != nil {
			t.Fatalf("CountTickets failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected count 0 after wipe, got %d", n)
		}
	})

	t.Run("meta", func(t *testing.T) {
		store := open(t)
		if _, ok, err := store.ReadMeta(ctx, "schema_version"); err != nil || ok {
			t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
		}
		if err := store.WriteMeta(ctx, "schema_version", "1"); err != nil {
			t.Fatalf("WriteMeta failed: %v", err)
		}
		if err := store.WriteMeta(ctx, "schema_version", "2"); err != nil {
			t.Fatalf("WriteMeta overwrite failed: %v", err)
		}
		v, ok, err := store.ReadMeta(ctx, "schema_version")
		if err != nil || !ok || v != "2" {
			t.Errorf("expected (2,true,nil), got (%q,%v,%v)", v, ok, err)
		}
	})

	// Updates carry no version check: when two loaded copies are saved, the
	// second save silently discards the first one's change.
	t.Run("last writer wins", func(t *testing.T) {
		store := open(t)
		seedStore(t, store)

		first, err := store.GetTicket(ctx, 2)
		if err != nil {
			t.Fatalf("GetTicket failed: %v", err)
		}
		second, err := store.GetTicket(ctx, 2)
		if err != nil {
			t.Fatalf("GetTicket failed: %v", err)
		}

		first.AppendComment("Mod", "first writer")
		if err := store.UpdateTicket(ctx, first); err != nil {
			t.Fatalf("UpdateTicket(first) failed: %v", err)
		}
		second.Priority = 1
		if err := store.UpdateTicket(ctx, second); err != nil {
			t.Fatalf("UpdateTicket(second) failed: %v", err)
		}

		got, err := store.GetTicket(ctx, 2)
		if err != nil {
			t.Fatalf("GetTicket failed: %v", err)
		}
		if len(got.Comments) != 1 {
			t.Errorf("expected the first writer's comment to be lost, got %d comments", len(got.Comments))
		}
		if got.Priority != 1 {
			t.Errorf("expected the second writer's priority, got %d", got.Priority)
		}
	})
}
