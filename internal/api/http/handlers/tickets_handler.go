package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/ticketmanager/internal/api/dto"
	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/service"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

// TicketsHandler exposes ticket operations over HTTP.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidInput("invalid payload", nil)
	}
	actor, err := parseActor(req.Actor)
	if err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), actor, req.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// SearchTickets GET /tickets?q=status:open+creator:Steve.
func (h *TicketsHandler) SearchTickets(c *fiber.Ctx) error {
	page, err := h.service.Search(c.UserContext(), strings.Fields(c.Query("q")))
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page))
}

// ListOpen GET /tickets/open?page=N.
func (h *TicketsHandler) ListOpen(c *fiber.Ctx) error {
	requested := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewInvalidInput("page must be a number", map[string]any{"value": raw})
		}
		requested = n
	}
	page, err := h.service.ListOpen(c.UserContext(), requested)
	if err != nil {
		return err
	}
	return c.JSON(pageResponse(page))
}

// GetTicket GET /tickets/:id?viewer=<key>. A viewer who created the ticket
// marks it read.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	actor, err := parseActor(dto.ActorRequest{Key: c.Query("viewer")})
	if err != nil {
		return err
	}
	ticket, err := h.service.View(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	var req dto.CommentRequest
	return h.mutate(c, &req, &req.Actor, func(actor domain.Actor, id int) (*domain.Ticket, error) {
		return h.service.Comment(c.UserContext(), actor, id, req.Text)
	})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	var req dto.CloseRequest
	return h.mutate(c, &req, &req.Actor, func(actor domain.Actor, id int) (*domain.Ticket, error) {
		return h.service.Close(c.UserContext(), actor, id, req.Comment)
	})
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	var req dto.ActorRequest
	return h.mutate(c, &req, &req, func(actor domain.Actor, id int) (*domain.Ticket, error) {
		return h.service.Reopen(c.UserContext(), actor, id)
	})
}

// UpdateAssignment PUT /tickets/:id/assignment. A blank assignment unassigns.
func (h *TicketsHandler) UpdateAssignment(c *fiber.Ctx) error {
	var req dto.AssignRequest
	return h.mutate(c, &req, &req.Actor, func(actor domain.Actor, id int) (*domain.Ticket, error) {
		if strings.TrimSpace(req.Assignment) == "" {
			return h.service.Unassign(c.UserContext(), actor, id)
		}
		return h.service.Assign(c.UserContext(), actor, id, req.Assignment)
	})
}

// UpdatePriority PUT /tickets/:id/priority.
func (h *TicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	var req dto.PriorityRequest
	return h.mutate(c, &req, &req.Actor, func(actor domain.Actor, id int) (*domain.Ticket, error) {
		return h.service.SetPriority(c.UserContext(), actor, id, req.Priority)
	})
}

// MassClose POST /tickets/mass-close.
func (h *TicketsHandler) MassClose(c *fiber.Ctx) error {
	var req dto.MassCloseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidInput("invalid payload", nil)
	}
	actor, err := parseActor(req.Actor)
	if err != nil {
		return err
	}
	affected, err := h.service.MassClose(c.UserContext(), actor, req.Low, req.High)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"affected": affected}})
}

// ListActorTickets GET /actors/:key/tickets.
func (h *TicketsHandler) ListActorTickets(c *fiber.Ctx) error {
	key, err := actorKey(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListForActor(c.UserContext(), key)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

// ListActorUnread GET /actors/:key/unread.
func (h *TicketsHandler) ListActorUnread(c *fiber.Ctx) error {
	key, err := actorKey(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListUnreadForActor(c.UserContext(), key)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponses(tickets)})
}

func (h *TicketsHandler) mutate(c *fiber.Ctx, req any, actorReq *dto.ActorRequest, apply func(domain.Actor, int) (*domain.Ticket, error)) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewInvalidInput("invalid payload", nil)
	}
	actor, err := parseActor(*actorReq)
	if err != nil {
		return err
	}
	ticket, err := apply(actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

func ticketID(c *fiber.Ctx) (int, error) {
	raw := c.Params("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidInput("ticket id must be a number", map[string]any{"value": raw})
	}
	return id, nil
}

func actorKey(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Params("key")
	key, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewInvalidInput("actor key must be a uuid", map[string]any{"value": raw})
	}
	return key, nil
}

func parseActor(req dto.ActorRequest) (domain.Actor, error) {
	actor, ok := req.ToActor()
	if !ok {
		return domain.Actor{}, apperrors.NewInvalidInput("actor key must be a uuid", map[string]any{"value": req.Key})
	}
	return actor, nil
}

func pageResponse(page service.Page) dto.PageResponse {
	resp := dto.PageResponse{
		Data:       dto.NewTicketResponses(page.Tickets),
		Page:       page.Page,
		TotalPages: page.TotalPages,
		Total:      page.Total,
	}
	if page.Nav != nil {
		resp.HasPrev = page.Nav.HasPrev
		resp.HasNext = page.Nav.HasNext
	}
	return resp
}
