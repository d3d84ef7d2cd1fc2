package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/ticketing"
)

// EventStore is the slice of event persistence the attendance
// handler depends on.
type EventStore interface {
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	Exists(ctx context.Context, id uint64) (bool, error)
}

// AttendingStore is the attendance persistence layer.  Create and
// Update take the validator so the capacity check runs inside the
// write transaction.
type AttendingStore interface {
	Create(ctx context.Context, v *ticketing.Validator, att *model.Attending, email string) error
	Update(ctx context.Context, v *ticketing.Validator, eventID, id uint64, p repository.AttendingPatch, email string) (model.Attending, error)
	GetByID(ctx context.Context, eventID, id uint64) (model.Attending, error)
	Delete(ctx context.Context, eventID, id uint64) error
	GetDetail(ctx context.Context, eventID, id uint64) (*repository.AttendingDetail, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]repository.AttendingDetail, error)
}

// UserStore is the slice of user persistence the attendance handler
// depends on.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	IsAdmin(ctx context.Context, id uint64) (bool, error)
}

// AttendingHandler manages attendance records: a user's ticket claim
// for an event.  Reads are open to any authenticated user; a record
// may only be modified by the attendee it belongs to, and deleted by
// the attendee or a platform admin.
type AttendingHandler struct {
	Events    EventStore
	Attending AttendingStore
	Users     UserStore
	Validator *ticketing.Validator

	// Publish is called after a successful claim so downstream
	// consumers can act on it.  Failures are logged, never surfaced
	// to the client.  Nil disables publishing.
	Publish func(ctx context.Context, ev queue.TicketConfirmedEvent) error
}

type attendingReq struct {
	TotalTickets *int    `json:"total_tickets"`
	SeatSection  *string `json:"seat_section"`
	Timestamp    *string `json:"timestamp"`
}

// validationStatus maps a validation failure to its HTTP response
// body.  Field errors are keyed by field name, mirroring the shape
// clients already parse.
func validationStatus(c echo.Context, err error) error {
	var verr *ticketing.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Fields})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

func eventNotFound(c echo.Context, eventID uint64) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("Event with id '%d' not found", eventID)})
}

func attendingNotFound(c echo.Context, eventID, id uint64) error {
	return c.JSON(http.StatusNotFound, echo.Map{
		"error": fmt.Sprintf("Attendee with id '%d' not found for event '%d'", id, eventID),
	})
}

// List handles GET /v1/events/:event_id/attending.  Records are
// newest first, each with nested user, event and invoice summaries.
func (h *AttendingHandler) List(c echo.Context) error {
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	ok, err := h.Events.Exists(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return eventNotFound(c, eventID)
	}
	details, err := h.Attending.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(details) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": fmt.Sprintf("No attendees found for event '%d'", eventID),
		})
	}
	return c.JSON(http.StatusOK, details)
}

// Get handles GET /v1/events/:event_id/attending/:attending_id.
func (h *AttendingHandler) Get(c echo.Context) error {
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	id, err := pathID(c, "attending_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attending id"})
	}
	ctx := c.Request().Context()
	ok, err := h.Events.Exists(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return eventNotFound(c, eventID)
	}
	det, err := h.Attending.GetDetail(ctx, eventID, id)
	if err != nil {
		if err == repository.ErrAttendingNotFound {
			return attendingNotFound(c, eventID, id)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, det)
}

// Create handles POST /v1/events/:event_id/attending.  The record is
// created for the authenticated caller.  Omitted fields default to a
// single ticket in General Admission; the validator then checks the
// ticket count and seat-section capacity inside the insert
// transaction, so two claims for the last slot cannot both succeed.
func (h *AttendingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req attendingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	event, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return eventNotFound(c, eventID)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	att := model.Attending{
		TotalTickets: 1,
		SeatSection:  string(ticketing.GeneralAdmission),
		EventID:      eventID,
		AttendingID:  userID,
	}
	if req.TotalTickets != nil {
		att.TotalTickets = *req.TotalTickets
	}
	if req.SeatSection != nil {
		att.SeatSection = *req.SeatSection
	}
	if req.Timestamp != nil {
		ts, terr := parseTimestamp(*req.Timestamp)
		if terr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "timestamp must be RFC 3339 or dd/mm/yyyy"})
		}
		att.Timestamp = ts
	}

	if err := h.Attending.Create(ctx, h.Validator, &att, user.Email); err != nil {
		return validationStatus(c, err)
	}

	if h.Publish != nil {
		ev := queue.TicketConfirmedEvent{
			AttendingID:  att.ID,
			UserID:       userID,
			UserEmail:    user.Email,
			EventID:      eventID,
			EventTitle:   event.Title,
			SeatSection:  att.SeatSection,
			TotalTickets: att.TotalTickets,
			TicketPrice:  event.TicketPrice,
			ConfirmedAt:  time.Now().UTC().Format(time.RFC3339),
		}
		if perr := h.Publish(ctx, ev); perr != nil {
			logrus.WithError(perr).WithField("attending_id", att.ID).Warn("ticket confirmation publish failed")
		}
	}

	det, err := h.Attending.GetDetail(ctx, eventID, att.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, det)
}

// Update handles PUT/PATCH /v1/events/:event_id/attending/:attending_id.
// Only the attendee the record belongs to may change it; absent
// fields keep their stored values.  The capacity check only re-runs
// when the seat section changes.
func (h *AttendingHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	id, err := pathID(c, "attending_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attending id"})
	}
	var req attendingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	ok, err := h.Events.Exists(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return eventNotFound(c, eventID)
	}
	current, err := h.Attending.GetByID(ctx, eventID, id)
	if err != nil {
		if err == repository.ErrAttendingNotFound {
			return attendingNotFound(c, eventID, id)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if current.AttendingID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Only the attendee can update this information"})
	}
	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	patch := repository.AttendingPatch{
		TotalTickets: req.TotalTickets,
		SeatSection:  req.SeatSection,
	}
	if req.Timestamp != nil {
		ts, terr := parseTimestamp(*req.Timestamp)
		if terr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "timestamp must be RFC 3339 or dd/mm/yyyy"})
		}
		patch.Timestamp = &ts
	}

	if _, err := h.Attending.Update(ctx, h.Validator, eventID, id, patch, user.Email); err != nil {
		if err == repository.ErrAttendingNotFound {
			return attendingNotFound(c, eventID, id)
		}
		return validationStatus(c, err)
	}
	det, err := h.Attending.GetDetail(ctx, eventID, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, det)
}

// Delete handles DELETE /v1/events/:event_id/attending/:attending_id.
// The attendee or a platform admin may delete; invoices cascade.
func (h *AttendingHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "event_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	id, err := pathID(c, "attending_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attending id"})
	}

	ctx := c.Request().Context()
	ok, err := h.Events.Exists(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return eventNotFound(c, eventID)
	}
	current, err := h.Attending.GetByID(ctx, eventID, id)
	if err != nil {
		if err == repository.ErrAttendingNotFound {
			return attendingNotFound(c, eventID, id)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if current.AttendingID != userID {
		isAdmin, aerr := h.Users.IsAdmin(ctx, userID)
		if aerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		if !isAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "User unauthorized to perform this request"})
		}
	}
	if err := h.Attending.Delete(ctx, eventID, id); err != nil {
		if err == repository.ErrAttendingNotFound {
			return attendingNotFound(c, eventID, id)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Attendance record deleted successfully"})
}
