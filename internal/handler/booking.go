package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-reservation/internal/service"
)

// BookingHandler serves the booking lifecycle endpoints: claim,
// inspect, confirm and cancel.
type BookingHandler struct {
	Engine *service.ReservationEngine
}

func NewBookingHandler(e *service.ReservationEngine) *BookingHandler {
	return &BookingHandler{Engine: e}
}

type claimReq struct {
	SeatNumbers []uint32 `json:"seat_numbers"`
}

// Claim places a hold on the requested seats and creates a pending
// booking.  The booking must be confirmed before the grace period
// runs out or the seats are released again.
func (h *BookingHandler) Claim(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req claimReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	b, err := h.Engine.ClaimSeats(c.Request().Context(), eventID, currentUserID(c), req.SeatNumbers)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get returns a booking by ID.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Engine.GetBooking(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Confirm finalizes a pending booking, marking its seats as booked.
func (h *BookingHandler) Confirm(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Engine.ConfirmBooking(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel releases a booking's seats and marks it failed.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Engine.CancelBooking(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
