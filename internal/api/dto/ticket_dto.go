package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticketmanager/internal/domain"
)

// ActorRequest identifies the caller of a mutating endpoint. An empty Key
// is the console.
type ActorRequest struct {
	Key      string           `json:"key"`
	Name     string           `json:"name"`
	Location *LocationPayload `json:"location,omitempty"`
}

// LocationPayload is a world position.
type LocationPayload struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Actor   ActorRequest `json:"actor"`
	Message string       `json:"message"`
}

// CommentRequest payload.
type CommentRequest struct {
	Actor ActorRequest `json:"actor"`
	Text  string       `json:"text"`
}

// CloseRequest payload.
type CloseRequest struct {
	Actor   ActorRequest `json:"actor"`
	Comment string       `json:"comment"`
}

// AssignRequest payload. An empty Assignment unassigns.
type AssignRequest struct {
	Actor      ActorRequest `json:"actor"`
	Assignment string       `json:"assignment"`
}

// PriorityRequest payload.
type PriorityRequest struct {
	Actor    ActorRequest `json:"actor"`
	Priority int          `json:"priority"`
}

// MassCloseRequest payload.
type MassCloseRequest struct {
	Actor ActorRequest `json:"actor"`
	Low   int          `json:"low"`
	High  int          `json:"high"`
}

// CommentResponse is one log entry.
type CommentResponse struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID         int                   `json:"id"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	Creator    string                `json:"creator"`
	ActorKey   string                `json:"actor_key,omitempty"`
	Assignment string                `json:"assignment,omitempty"`
	Location   *LocationPayload      `json:"location,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	Unread     bool                  `json:"unread_by_creator"`
	Comments   []CommentResponse     `json:"comments"`
}

// PageResponse wraps one window of tickets.
type PageResponse struct {
	Data       []TicketResponse `json:"data"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
	HasPrev    bool             `json:"has_prev"`
	HasNext    bool             `json:"has_next"`
}

// ToActor converts the request actor. ok is false for a malformed key.
func (a ActorRequest) ToActor() (domain.Actor, bool) {
	actor := domain.Actor{Name: a.Name}
	if a.Key != "" {
		key, err := uuid.Parse(a.Key)
		if err != nil {
			return domain.Actor{}, false
		}
		actor.Key = key
	}
	if actor.Key == uuid.Nil && actor.Name == "" {
		actor.Name = domain.ConsoleName
	}
	if a.Location != nil {
		actor.Location = &domain.Location{World: a.Location.World, X: a.Location.X, Y: a.Location.Y, Z: a.Location.Z}
	}
	return actor, true
}

// NewTicketResponse converts a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:         t.ID,
		Status:     t.Status,
		Priority:   t.Priority,
		Creator:    t.Creator,
		Assignment: t.Assignment,
		CreatedAt:  time.Unix(t.CreationTime, 0).UTC(),
		Unread:     t.UnreadByCreator,
		Comments:   make([]CommentResponse, 0, len(t.Comments)),
	}
	if t.ActorKey != uuid.Nil {
		resp.ActorKey = t.ActorKey.String()
	}
	if t.Location != nil {
		resp.Location = &LocationPayload{World: t.Location.World, X: t.Location.X, Y: t.Location.Y, Z: t.Location.Z}
	}
	for _, c := range t.Comments {
		resp.Comments = append(resp.Comments, CommentResponse{Author: c.Author, Text: c.Text})
	}
	return resp
}

// NewTicketResponses converts a slice of tickets.
func NewTicketResponses(tickets []*domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, NewTicketResponse(t))
	}
	return out
}
