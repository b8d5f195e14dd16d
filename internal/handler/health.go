package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health responds 200 as long as the process is up. Used by load
// balancer probes; it deliberately never touches the database.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
