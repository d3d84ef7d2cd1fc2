package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// EventHandler exposes CRUD and search endpoints for events.  All
// methods assume JWT authentication has been performed by
// middleware.  The creator of an event becomes its admin: only they
// may update it, and only they or a platform admin may delete it.
type EventHandler struct {
	Events *repository.EventRepo
	Users  *repository.UserRepo
}

// NewEventHandler constructs an EventHandler and panics if any
// dependency is nil.
func NewEventHandler(events *repository.EventRepo, users *repository.UserRepo) *EventHandler {
	if events == nil || users == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Users: users}
}

type eventReq struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"` // dd/mm/yyyy or yyyy-mm-dd
	TicketPrice *float64 `json:"ticket_price"`
}

type eventResp struct {
	ID           uint64  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Date         string  `json:"date"`
	TicketPrice  float64 `json:"ticket_price"`
	EventAdminID uint64  `json:"event_admin_id"`
}

func toEventResp(e model.Event) eventResp {
	return eventResp{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Date:         e.Date.Format("2006-01-02"),
		TicketPrice:  e.TicketPrice,
		EventAdminID: e.EventAdminID,
	}
}

// List handles GET /v1/events.  Events are ordered by date
// descending.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Events.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/events/:event_id.  The response nests attendee
// and invoice summaries.
func (h *EventHandler) Get(c echo.Context) error {
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	det, err := h.Events.GetDetail(c.Request().Context(), eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("Event with id '%d' not found", eventID)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, det)
}

// Search handles GET /v1/events/search/:title with case-insensitive
// partial title matching.
func (h *EventHandler) Search(c echo.Context) error {
	title := strings.TrimSpace(c.Param("title"))
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "search text required"})
	}
	events, err := h.Events.SearchByTitle(c.Request().Context(), title)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(events) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("No events found matching '%s'", title)})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/events.  The authenticated caller becomes
// the event admin.
func (h *EventHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Date must be written as dd/mm/yyyy"})
	}
	e := model.Event{
		Title:        req.Title,
		Description:  req.Description,
		Date:         date,
		EventAdminID: userID,
	}
	if req.TicketPrice != nil {
		e.TicketPrice = *req.TicketPrice
	}
	if err := h.Events.Create(c.Request().Context(), &e); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(e))
}

// Update handles PUT/PATCH /v1/events/:event_id.  Only the creator
// may update; fields absent from the body keep their stored values.
func (h *EventHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Date        *string  `json:"date"`
		TicketPrice *float64 `json:"ticket_price"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("Event with id '%d' not found", eventID)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if e.EventAdminID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Only the creator of an event can update it"})
	}

	patch := repository.EventPatch{
		Title:       req.Title,
		Description: req.Description,
		TicketPrice: req.TicketPrice,
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Date must be written as dd/mm/yyyy"})
		}
		patch.Date = &date
	}
	updated, err := h.Events.Update(ctx, eventID, patch)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(updated))
}

// Delete handles DELETE /v1/events/:event_id.  The creator or a
// platform admin may delete; attendance rows and invoices cascade.
func (h *EventHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx := c.Request().Context()
	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("Event with id '%d' not found", eventID)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if e.EventAdminID != userID {
		isAdmin, aerr := h.Users.IsAdmin(ctx, userID)
		if aerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if !isAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "User unauthorized to perform this request"})
		}
	}
	if err := h.Events.Delete(ctx, eventID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("Event '%s' deleted successfully", e.Title)})
}
