package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

type TicketHandler struct {
	Tickets *repository.TicketRepo
}

func NewTicketHandler(t *repository.TicketRepo) *TicketHandler {
	return &TicketHandler{Tickets: t}
}

type createTicketReq struct {
	Subject     string `json:"subject" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=5000"`
}

type updateTicketReq struct {
	Subject     *string `json:"subject" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,min=1,max=5000"`
	Status      *string `json:"status" validate:"omitempty,oneof=Open Resolved"`
}

func (h *TicketHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	var req createTicketReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	t := model.SupportTicket{
		UserID:      uid,
		Subject:     strings.TrimSpace(req.Subject),
		Description: req.Description,
		Status:      model.TicketOpen,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tickets.Create(ctx, &t); err != nil {
		return repoErr(c, err, "create ticket")
	}
	created, err := h.Tickets.GetByID(ctx, t.ID)
	if err != nil {
		return repoErr(c, err, "load ticket")
	}
	return c.JSON(http.StatusCreated, newTicketResp(*created))
}

func (h *TicketHandler) page(c echo.Context, userID uint64, status model.TicketStatus) error {
	p, err := pageOf(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, err.Error())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Tickets.List(ctx, userID, status, p)
	if err != nil {
		return repoErr(c, err, "list tickets")
	}
	out := make([]ticketResp, 0, len(rows))
	for _, t := range rows {
		out = append(out, newTicketResp(t))
	}
	return list(c, out, p, total)
}

// Mine lists the caller's tickets.
func (h *TicketHandler) Mine(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return errJSON(c, http.StatusUnauthorized, "unauthorized")
	}
	return h.page(c, uid, "")
}

// List returns every ticket, optionally filtered by ?status (admin).
func (h *TicketHandler) List(c echo.Context) error {
	var status model.TicketStatus
	switch v := c.QueryParam("status"); {
	case v == "":
	case strings.EqualFold(v, string(model.TicketOpen)):
		status = model.TicketOpen
	case strings.EqualFold(v, string(model.TicketResolved)):
		status = model.TicketResolved
	default:
		return errJSON(c, http.StatusBadRequest, "status must be Open or Resolved")
	}
	return h.page(c, 0, status)
}

func (h *TicketHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "load ticket")
	}
	if !selfOrAdmin(c, t.UserID) {
		return forbidden(c)
	}
	return c.JSON(http.StatusOK, newTicketResp(*t))
}

// Update edits a ticket (owner or admin).  Only admins change the status.
func (h *TicketHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	var req updateTicketReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	patch := model.TicketPatch{Subject: req.Subject, Description: req.Description}
	if req.Status != nil {
		if !middleware.IsAdmin(c) {
			return forbidden(c)
		}
		s := model.TicketStatus(*req.Status)
		patch.Status = &s
	}
	if patch.Empty() {
		return errJSON(c, http.StatusBadRequest, "no fields to update")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "load ticket")
	}
	if !selfOrAdmin(c, t.UserID) {
		return forbidden(c)
	}
	return h.apply(c, id, patch)
}

// Resolve marks a ticket Resolved (admin).
func (h *TicketHandler) Resolve(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	s := model.TicketResolved
	return h.apply(c, id, model.TicketPatch{Status: &s})
}

func (h *TicketHandler) apply(c echo.Context, id uint64, patch model.TicketPatch) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tickets.Update(ctx, id, patch); err != nil {
		return repoErr(c, err, "update ticket")
	}
	t, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "load ticket")
	}
	return c.JSON(http.StatusOK, newTicketResp(*t))
}

func (h *TicketHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tickets.Delete(ctx, id); err != nil {
		return repoErr(c, err, "delete ticket")
	}
	return c.NoContent(http.StatusNoContent)
}
