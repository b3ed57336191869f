package events

import (
	"time"

	"github.com/spec-kit/ticketmanager/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketCommented       EventType = "ticket_commented"
	EventTicketClosed          EventType = "ticket_closed"
	EventTicketReopened        EventType = "ticket_reopened"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketsMassClosed     EventType = "tickets_mass_closed"
)

// AllEventTypes lists every type services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketCommented,
	EventTicketClosed,
	EventTicketReopened,
	EventTicketAssigned,
	EventTicketPriorityChanged,
	EventTicketsMassClosed,
}

// Actor identifies who caused an event. Key is empty for the console.
type Actor struct {
	Key  string `json:"key,omitempty"`
	Name string `json:"name"`
}

// ActorFrom converts a domain actor.
func ActorFrom(a domain.Actor) Actor {
	if a.IsConsole() {
		return Actor{Name: a.Name}
	}
	return Actor{Key: a.Key.String(), Name: a.Name}
}

// Event represents a domain event emitted by services. TicketID is zero for
// events that span several tickets.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int       `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Creator  string                `json:"creator"`
	Priority domain.TicketPriority `json:"priority"`
	Location string                `json:"location,omitempty"`
	Message  string                `json:"message"`
}

// TicketCommentedPayload payload.
type TicketCommentedPayload struct {
	Author      string `json:"author"`
	BodyPreview string `json:"body_preview"`
}

// TicketStatusChangedPayload is shared by close and reopen events.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload. An empty Assignment means unassigned.
type TicketAssignedPayload struct {
	OldAssignment string `json:"old_assignment,omitempty"`
	Assignment    string `json:"assignment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketsMassClosedPayload payload.
type TicketsMassClosedPayload struct {
	LowID    int   `json:"low_id"`
	HighID   int   `json:"high_id"`
	Affected int64 `json:"affected"`
}
