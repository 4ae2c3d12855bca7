package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports whether the service is up.  Load balancers probe it.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
