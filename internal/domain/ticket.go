package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "OPEN"
	TicketStatusClosed TicketStatus = "CLOSED"
)

// ParseTicketStatus accepts any casing of a known status.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	switch TicketStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case TicketStatusOpen:
		return TicketStatusOpen, true
	case TicketStatusClosed:
		return TicketStatusClosed, true
	}
	return "", false
}

// TicketPriority ranges from 1 (lowest) to 5 (highest).
type TicketPriority int

const (
	PriorityLowest  TicketPriority = 1
	PriorityDefault TicketPriority = 3
	PriorityHighest TicketPriority = 5
)

// ClampPriority maps any value into [PriorityLowest, PriorityHighest].
func ClampPriority(value int) TicketPriority {
	switch {
	case value < int(PriorityLowest):
		return PriorityLowest
	case value > int(PriorityHighest):
		return PriorityHighest
	}
	return TicketPriority(value)
}

// ConsoleName is the creator name recorded for the non-player actor.
const ConsoleName = "Console"

// Location is a block position inside a named world.
type Location struct {
	World string
	X     int
	Y     int
	Z     int
}

func (l Location) String() string {
	return l.World + " " + strconv.Itoa(l.X) + " " + strconv.Itoa(l.Y) + " " + strconv.Itoa(l.Z)
}

// Actor is whoever performs an operation. A zero Key means no identity.
type Actor struct {
	Key      uuid.UUID
	Name     string
	Location *Location
}

// ConsoleActor returns the identity-less system actor.
func ConsoleActor() Actor {
	return Actor{Key: uuid.Nil, Name: ConsoleName}
}

// IsConsole reports whether the actor carries no identity key.
func (a Actor) IsConsole() bool {
	return a.Key == uuid.Nil
}

// Comment is one entry of a ticket's append-only log.
type Comment struct {
	Author string
	Text   string
}

// Ticket is the unit of work tracked by the system.
type Ticket struct {
	ID              int
	Status          TicketStatus
	Priority        TicketPriority
	Creator         string
	ActorKey        uuid.UUID
	Assignment      string
	Location        *Location
	CreationTime    int64
	Comments        []Comment
	UnreadByCreator bool
}

// NewTicket builds an open, unassigned ticket whose first comment is message.
// The id is left zero for the store to assign.
func NewTicket(actor Actor, message string, now time.Time) *Ticket {
	t := &Ticket{
		Status:       TicketStatusOpen,
		Priority:     PriorityDefault,
		Creator:      actor.Name,
		ActorKey:     actor.Key,
		CreationTime: now.Unix(),
	}
	if actor.Location != nil {
		loc := *actor.Location
		t.Location = &loc
	}
	t.AppendComment(actor.Name, message)
	return t
}

// MatchesActor compares identity keys. Two identity-less keys are equal.
func (t *Ticket) MatchesActor(key uuid.UUID) bool {
	return t.ActorKey == key
}

// AppendComment sanitizes both fields and appends them to the log.
func (t *Ticket) AppendComment(author, text string) {
	t.Comments = append(t.Comments, Comment{
		Author: SanitizeCommentField(author),
		Text:   SanitizeCommentField(text),
	})
}

// IsOpen reports whether the ticket status is OPEN.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

// IsAssigned reports whether the ticket has a non-blank assignment.
func (t *Ticket) IsAssigned() bool {
	return strings.TrimSpace(t.Assignment) != ""
}

// Clone returns a deep copy.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.Location != nil {
		loc := *t.Location
		c.Location = &loc
	}
	c.Comments = append([]Comment(nil), t.Comments...)
	return &c
}
