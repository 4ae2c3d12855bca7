package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-reservation/internal/service"
)

// currentUserID reads the authenticated user's ID set by the JWT
// middleware.  Returns 0 when the request is unauthenticated.
func currentUserID(c echo.Context) uint64 {
	id, _ := c.Get("user_id").(uint64)
	return id
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// writeServiceError translates a reservation error into an HTTP
// response.  Seat numbers involved in a failure are echoed back so
// clients can tell the user which seats to re-pick.
func writeServiceError(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) {
		body := echo.Map{"error": se.Message}
		if len(se.SeatNumbers) > 0 {
			body["seat_numbers"] = se.SeatNumbers
		}
		switch se.Kind {
		case service.KindNotFound:
			return c.JSON(http.StatusNotFound, body)
		case service.KindInvalidInput:
			return c.JSON(http.StatusBadRequest, body)
		case service.KindConflict:
			return c.JSON(http.StatusConflict, body)
		}
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
