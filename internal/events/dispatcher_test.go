package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var got []string
	d.Subscribe(EventTicketClosed, func(_ context.Context, e Event) error {
		got = append(got, "first")
		return errors.New("handler broke")
	})
	d.Subscribe(EventTicketClosed, func(_ context.Context, e Event) error {
		got = append(got, "second")
		return nil
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "other")
		return nil
	})

	if err := d.Publish(context.Background(), Event{Type: EventTicketClosed, TicketID: 3}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("expected [first second], got %v", got)
	}
}
