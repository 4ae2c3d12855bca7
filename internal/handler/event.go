package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-reservation/internal/service"
)

// EventHandler serves event administration and browsing endpoints.
type EventHandler struct {
	Engine *service.ReservationEngine
}

func NewEventHandler(e *service.ReservationEngine) *EventHandler {
	return &EventHandler{Engine: e}
}

type createEventReq struct {
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	TotalSeats uint32    `json:"total_seats"`
}

// Create adds a new event with its full seat map in one shot.  Admin
// only.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ev, err := h.Engine.CreateEvent(c.Request().Context(), req.Title, req.StartsAt, req.TotalSeats)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// List returns all events.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Engine.ListEvents(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Seats returns the seat map of one event, including each seat's
// current status.  Clients poll this endpoint to render availability,
// so it sits behind the response cache.
func (h *EventHandler) Seats(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	seats, err := h.Engine.SeatsForEvent(c.Request().Context(), eventID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "seats": seats})
}
