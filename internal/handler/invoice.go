package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// InvoiceHandler manages invoices attached to attendance records.
// Reads are open to any authenticated user; create, update and
// delete are registered behind the admin middleware.
type InvoiceHandler struct {
	Events    *repository.EventRepo
	Attending *repository.AttendingRepo
	Invoices  *repository.InvoiceRepo
}

// NewInvoiceHandler constructs an InvoiceHandler.
func NewInvoiceHandler(events *repository.EventRepo, attending *repository.AttendingRepo, invoices *repository.InvoiceRepo) *InvoiceHandler {
	return &InvoiceHandler{Events: events, Attending: attending, Invoices: invoices}
}

type invoiceReq struct {
	TotalCost *float64 `json:"total_cost"`
	Timestamp *string  `json:"timestamp"`
}

type invoiceResp struct {
	ID         uint64  `json:"id"`
	TotalCost  float64 `json:"total_cost"`
	Reference  string  `json:"reference"`
	Timestamp  string  `json:"timestamp"`
	EventID    uint64  `json:"event_id"`
	AttendeeID uint64  `json:"attendee_id"`
}

func toInvoiceResp(inv model.Invoice) invoiceResp {
	return invoiceResp{
		ID:         inv.ID,
		TotalCost:  inv.TotalCost,
		Reference:  inv.Reference,
		Timestamp:  inv.Timestamp.UTC().Format(time.RFC3339),
		EventID:    inv.EventID,
		AttendeeID: inv.AttendeeID,
	}
}

// checkParents verifies the event and attendance record in the path
// both exist, writing the 404 response itself when one is missing.
// The bool reports whether the caller should continue.
func (h *InvoiceHandler) checkParents(c echo.Context, eventID, attendeeID uint64) (bool, error) {
	ctx := c.Request().Context()
	ok, err := h.Events.Exists(ctx, eventID)
	if err != nil {
		return false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return false, eventNotFound(c, eventID)
	}
	ok, err = h.Attending.Exists(ctx, eventID, attendeeID)
	if err != nil {
		return false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !ok {
		return false, attendingNotFound(c, eventID, attendeeID)
	}
	return true, nil
}

// invoiceIDs parses the event and attendance ids from the path,
// writing the 400 response itself when either is malformed.  As with
// checkParents, the bool reports whether the caller should continue;
// c.JSON returns nil on a successful write, so the error value alone
// cannot signal that the response is already committed.
func invoiceIDs(c echo.Context) (eventID, attendeeID uint64, ok bool, err error) {
	if eventID, err = pathID(c, "event_id"); err != nil {
		return 0, 0, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	if attendeeID, err = pathID(c, "attending_id"); err != nil {
		return 0, 0, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid attending id"})
	}
	return eventID, attendeeID, true, nil
}

// List handles GET .../attending/:attending_id/invoices, newest
// first.
func (h *InvoiceHandler) List(c echo.Context) error {
	eventID, attendeeID, ok, err := invoiceIDs(c)
	if !ok {
		return err
	}
	if ok, err := h.checkParents(c, eventID, attendeeID); !ok {
		return err
	}
	invoices, err := h.Invoices.ListByAttendee(c.Request().Context(), eventID, attendeeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]invoiceResp, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResp(inv))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET .../invoices/:invoice_id.
func (h *InvoiceHandler) Get(c echo.Context) error {
	eventID, attendeeID, ok, err := invoiceIDs(c)
	if !ok {
		return err
	}
	id, err := pathID(c, "invoice_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invoice id"})
	}
	if ok, err := h.checkParents(c, eventID, attendeeID); !ok {
		return err
	}
	inv, err := h.Invoices.GetByID(c.Request().Context(), eventID, attendeeID, id)
	if err != nil {
		if err == repository.ErrInvoiceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("Invoice with id '%d' not found", id)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toInvoiceResp(inv))
}

// Create handles POST .../invoices (admin only).  A unique reference
// is generated for each invoice; total cost defaults to the event's
// ticket price multiplied by the attendee's ticket count when not
// supplied.
func (h *InvoiceHandler) Create(c echo.Context) error {
	eventID, attendeeID, ok, err := invoiceIDs(c)
	if !ok {
		return err
	}
	var req invoiceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if ok, err := h.checkParents(c, eventID, attendeeID); !ok {
		return err
	}

	ctx := c.Request().Context()
	inv := model.Invoice{
		Reference:  uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		EventID:    eventID,
		AttendeeID: attendeeID,
	}
	if req.TotalCost != nil {
		inv.TotalCost = *req.TotalCost
	} else {
		event, eerr := h.Events.GetByID(ctx, eventID)
		if eerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		att, aerr := h.Attending.GetByID(ctx, eventID, attendeeID)
		if aerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		inv.TotalCost = event.TicketPrice * float64(att.TotalTickets)
	}
	if req.Timestamp != nil {
		ts, terr := parseTimestamp(*req.Timestamp)
		if terr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "timestamp must be RFC 3339 or dd/mm/yyyy"})
		}
		inv.Timestamp = ts
	}
	if err := h.Invoices.Create(ctx, &inv); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "Invoice reference already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create invoice failed"})
	}
	return c.JSON(http.StatusCreated, toInvoiceResp(inv))
}

// Update handles PUT/PATCH .../invoices/:invoice_id (admin only).
// The reference is immutable; absent fields keep stored values.
func (h *InvoiceHandler) Update(c echo.Context) error {
	eventID, attendeeID, ok, err := invoiceIDs(c)
	if !ok {
		return err
	}
	id, err := pathID(c, "invoice_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invoice id"})
	}
	var req invoiceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if ok, err := h.checkParents(c, eventID, attendeeID); !ok {
		return err
	}

	patch := repository.InvoicePatch{TotalCost: req.TotalCost}
	if req.Timestamp != nil {
		ts, terr := parseTimestamp(*req.Timestamp)
		if terr != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "timestamp must be RFC 3339 or dd/mm/yyyy"})
		}
		patch.Timestamp = &ts
	}
	inv, err := h.Invoices.Update(c.Request().Context(), eventID, attendeeID, id, patch)
	if err != nil {
		if err == repository.ErrInvoiceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("Invoice with id '%d' not found", id)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update invoice failed"})
	}
	return c.JSON(http.StatusOK, toInvoiceResp(inv))
}

// Delete handles DELETE .../invoices/:invoice_id (admin only).
func (h *InvoiceHandler) Delete(c echo.Context) error {
	eventID, attendeeID, ok, err := invoiceIDs(c)
	if !ok {
		return err
	}
	id, err := pathID(c, "invoice_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid invoice id"})
	}
	if ok, err := h.checkParents(c, eventID, attendeeID); !ok {
		return err
	}
	if err := h.Invoices.Delete(c.Request().Context(), eventID, attendeeID, id); err != nil {
		if err == repository.ErrInvoiceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": fmt.Sprintf("Invoice with id '%d' not found", id)})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete invoice failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Invoice deleted successfully"})
}
