package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/events"
	"github.com/spec-kit/ticketmanager/internal/observability"
	"github.com/spec-kit/ticketmanager/internal/pagination"
	"github.com/spec-kit/ticketmanager/internal/repository"
	"github.com/spec-kit/ticketmanager/internal/search"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

// DefaultPageBudget is the number of display rows a result page may use.
const DefaultPageBudget = 10

// TicketService coordinates ticket workflows on top of the active store.
type TicketService struct {
	store      repository.TicketStore
	compiler   *search.Compiler
	gate       *Gate
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	pageBudget int
	now        func() time.Time

	// createMu serializes NextTicketID and CreateTicket within the process.
	createMu sync.Mutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.TicketStore
	Gate       *Gate
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	PageBudget int
	Now        func() time.Time
}

// Page is one window of a ticket listing.
type Page struct {
	Tickets    []*domain.Ticket
	Page       int
	TotalPages int
	Total      int
	Nav        *pagination.Nav
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	if deps.Gate == nil {
		deps.Gate = NewGate()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.PageBudget <= 0 {
		deps.PageBudget = DefaultPageBudget
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &TicketService{
		store:      deps.Store,
		compiler:   search.NewCompiler(deps.Now),
		gate:       deps.Gate,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		pageBudget: deps.PageBudget,
		now:        deps.Now,
	}
}

// Create opens a ticket for actor with message as its first comment.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, message string) (ticket *domain.Ticket, err error) {
	defer func() { s.metrics.RecordOperation("create", err) }()
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.NewInvalidInput("ticket message must not be empty", nil)
	}
	release, err := s.gate.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	s.createMu.Lock()
	defer s.createMu.Unlock()

	id, err := s.store.NextTicketID(ctx)
	if err != nil {
		return nil, err
	}
	ticket = domain.NewTicket(actor, message, s.now())
	ticket.ID = id
	if err := s.store.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}

	payload := events.TicketCreatedPayload{
		Creator:  ticket.Creator,
		Priority: ticket.Priority,
		Message:  stringPreview(message, 120),
	}
	if ticket.Location != nil {
		payload.Location = ticket.Location.String()
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFrom(actor),
		Payload:  payload,
	})
	s.logger.Info("ticket created", zap.Int("ticket_id", ticket.ID), zap.String("creator", ticket.Creator))
	return ticket, nil
}

// Comment appends text to the ticket's log.
func (s *TicketService) Comment(ctx context.Context, actor domain.Actor, id int, text string) (*domain.Ticket, error) {
	if strings.TrimSpace(text) == "" {
		err := apperrors.NewInvalidInput("comment must not be empty", map[string]any{"ticket_id": id})
		s.metrics.RecordOperation("comment", err)
		return nil, err
	}
	return s.mutate(ctx, "comment", actor, id, func(t *domain.Ticket) (*events.Event, error) {
		t.AppendComment(actor.Name, text)
		return &events.Event{
			Type: events.EventTicketCommented,
			Payload: events.TicketCommentedPayload{
				Author:      actor.Name,
				BodyPreview: stringPreview(text, 120),
			},
		}, nil
	})
}

// Close closes an open ticket, optionally recording a closing comment.
func (s *TicketService) Close(ctx context.Context, actor domain.Actor, id int, comment string) (*domain.Ticket, error) {
	return s.mutate(ctx, "close", actor, id, func(t *domain.Ticket) (*events.Event, error) {
		if !t.IsOpen() {
			return nil, apperrors.NewInvalidInput("ticket is already closed", map[string]any{"ticket_id": id})
		}
		if strings.TrimSpace(comment) != "" {
			t.AppendComment(actor.Name, comment)
		}
		t.Status = domain.TicketStatusClosed
		return &events.Event{
			Type: events.EventTicketClosed,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: domain.TicketStatusOpen,
				NewStatus: domain.TicketStatusClosed,
				Comment:   comment,
			},
		}, nil
	})
}

// Reopen moves a closed ticket back to OPEN.
func (s *TicketService) Reopen(ctx context.Context, actor domain.Actor, id int) (*domain.Ticket, error) {
	return s.mutate(ctx, "reopen", actor, id, func(t *domain.Ticket) (*events.Event, error) {
		if t.IsOpen() {
			return nil, apperrors.NewInvalidInput("ticket is already open", map[string]any{"ticket_id": id})
		}
		t.Status = domain.TicketStatusOpen
		return &events.Event{
			Type: events.EventTicketReopened,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: domain.TicketStatusClosed,
				NewStatus: domain.TicketStatusOpen,
			},
		}, nil
	})
}

// Assign sets the free-text assignment.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, id int, assignment string) (*domain.Ticket, error) {
	assignment = strings.TrimSpace(assignment)
	if assignment == "" {
		err := apperrors.NewInvalidInput("assignment must not be empty", map[string]any{"ticket_id": id})
		s.metrics.RecordOperation("assign", err)
		return nil, err
	}
	return s.setAssignment(ctx, "assign", actor, id, assignment)
}

// Unassign clears the assignment.
func (s *TicketService) Unassign(ctx context.Context, actor domain.Actor, id int) (*domain.Ticket, error) {
	return s.setAssignment(ctx, "unassign", actor, id, "")
}

func (s *TicketService) setAssignment(ctx context.Context, op string, actor domain.Actor, id int, assignment string) (*domain.Ticket, error) {
	return s.mutate(ctx, op, actor, id, func(t *domain.Ticket) (*events.Event, error) {
		old := t.Assignment
		t.Assignment = assignment
		return &events.Event{
			Type: events.EventTicketAssigned,
			Payload: events.TicketAssignedPayload{
				OldAssignment: old,
				Assignment:    assignment,
			},
		}, nil
	})
}

// SetPriority stores value clamped into the valid range.
func (s *TicketService) SetPriority(ctx context.Context, actor domain.Actor, id int, value int) (*domain.Ticket, error) {
	return s.mutate(ctx, "set_priority", actor, id, func(t *domain.Ticket) (*events.Event, error) {
		old := t.Priority
		t.Priority = domain.ClampPriority(value)
		return &events.Event{
			Type: events.EventTicketPriorityChanged,
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: old,
				NewPriority: t.Priority,
			},
		}, nil
	})
}

// View loads a ticket for actor. A creator viewing their unread ticket marks
// it read.
func (s *TicketService) View(ctx context.Context, actor domain.Actor, id int) (ticket *domain.Ticket, err error) {
	defer func() { s.metrics.RecordOperation("view", err) }()
	release, err := s.gate.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	ticket, err = s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.RecordView(actor.Key) {
		if err := s.store.UpdateTicket(ctx, ticket); err != nil {
			return nil, err
		}
	}
	return ticket, nil
}

// MassClose closes every ticket with low <= id <= high and reports how many
// rows were touched.
func (s *TicketService) MassClose(ctx context.Context, actor domain.Actor, low, high int) (affected int64, err error) {
	defer func() { s.metrics.RecordOperation("mass_close", err) }()
	if low > high {
		return 0, apperrors.NewInvalidInput("lower bound exceeds upper bound", map[string]any{"low": low, "high": high})
	}
	release, err := s.gate.Enter()
	if err != nil {
		return 0, err
	}
	defer release()

	affected, err = s.store.MassCloseRange(ctx, low, high)
	if err != nil {
		return 0, err
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketsMassClosed,
		Actor:   events.ActorFrom(actor),
		Payload: events.TicketsMassClosedPayload{LowID: low, HighID: high, Affected: affected},
	})
	s.logger.Info("tickets mass closed", zap.Int("low", low), zap.Int("high", high), zap.Int64("affected", affected))
	return affected, nil
}

// Search compiles key:value tokens, runs them on the store and returns the
// page named by the -page token.
func (s *TicketService) Search(ctx context.Context, tokens []string) (page Page, err error) {
	defer func() { s.metrics.RecordOperation("search", err) }()
	plan, err := s.compiler.Compile(tokens)
	if err != nil {
		return Page{}, err
	}
	release, err := s.gate.Enter()
	if err != nil {
		return Page{}, err
	}
	defer release()

	tickets, err := s.store.Execute(ctx, plan)
	if err != nil {
		return Page{}, err
	}
	return s.window(tickets, plan.Page)
}

// ListOpen returns one page of open tickets ordered by id.
func (s *TicketService) ListOpen(ctx context.Context, requested int) (page Page, err error) {
	defer func() { s.metrics.RecordOperation("list_open", err) }()
	release, err := s.gate.Enter()
	if err != nil {
		return Page{}, err
	}
	defer release()

	tickets, err := s.store.ListOpenTickets(ctx)
	if err != nil {
		return Page{}, err
	}
	return s.window(tickets, requested)
}

// ListUnreadForActor returns the tickets key created that others changed
// since key last viewed them.
func (s *TicketService) ListUnreadForActor(ctx context.Context, key uuid.UUID) (tickets []*domain.Ticket, err error) {
	defer func() { s.metrics.RecordOperation("list_unread", err) }()
	release, err := s.gate.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.store.ListUnreadTicketsForActor(ctx, key)
}

// ListForActor returns every ticket key created.
func (s *TicketService) ListForActor(ctx context.Context, key uuid.UUID) (tickets []*domain.Ticket, err error) {
	defer func() { s.metrics.RecordOperation("list_actor", err) }()
	release, err := s.gate.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.store.ListTicketsByActor(ctx, key)
}

// mutate loads ticket id, applies change, records the unread transition for
// actor and writes the whole row back.
func (s *TicketService) mutate(ctx context.Context, op string, actor domain.Actor, id int, change func(*domain.Ticket) (*events.Event, error)) (ticket *domain.Ticket, err error) {
	defer func() { s.metrics.RecordOperation(op, err) }()
	release, err := s.gate.Enter()
	if err != nil {
		return nil, err
	}
	defer release()

	ticket, err = s.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := change(ticket)
	if err != nil {
		return nil, err
	}
	ticket.RecordMutation(actor.Key)
	if err := s.store.UpdateTicket(ctx, ticket); err != nil {
		return nil, err
	}

	if event != nil {
		event.TicketID = ticket.ID
		event.Actor = events.ActorFrom(actor)
		s.publishEvent(ctx, *event)
	}
	return ticket, nil
}

func (s *TicketService) window(tickets []*domain.Ticket, requested int) (Page, error) {
	w, err := pagination.Select(tickets, pagination.NoHeader, s.pageBudget, requested)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Tickets:    w.Rows,
		Page:       w.Page,
		TotalPages: w.TotalPages,
		Total:      len(tickets),
		Nav:        w.Nav,
	}, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// stringPreview shortens body to at most max runes, marking the cut.
func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
