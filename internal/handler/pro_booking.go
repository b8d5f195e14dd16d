package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ndelacroix/culture-pass/internal/bookings"
	"github.com/ndelacroix/culture-pass/internal/export"
	"github.com/ndelacroix/culture-pass/internal/middleware"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

// ProBookingHandler serves the pro back office: countermark lookup and
// validation, booking lists and exports.
type ProBookingHandler struct {
	Svc      *bookings.Service
	Bookings *repository.BookingRepo
}

func NewProBookingHandler(svc *bookings.Service, bookings *repository.BookingRepo) *ProBookingHandler {
	return &ProBookingHandler{Svc: svc, Bookings: bookings}
}

// GetByToken resolves a countermark typed in at the venue, without
// changing its state. Pros call this to display the booking before
// validating it.
func (h *ProBookingHandler) GetByToken(c echo.Context) error {
	token := c.Param("token")
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Svc.GetByToken(ctx, middleware.UserID(c), token)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(h.Svc, d, true))
}

// Use validates a countermark, marking the booking used.
func (h *ProBookingHandler) Use(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Svc.MarkAsUsed(ctx, middleware.UserID(c), c.Param("token"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(h.Svc, d, true))
}

// Unuse reverts an accidental validation.
func (h *ProBookingHandler) Unuse(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Svc.MarkAsUnused(ctx, middleware.UserID(c), c.Param("token"))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(h.Svc, d, true))
}

// Cancel cancels a booking on the pro's own offer.
func (h *ProBookingHandler) Cancel(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Svc.CancelByOfferer(ctx, middleware.UserID(c), id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(h.Svc, d, true))
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func pageParams(c echo.Context) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// List pages through all bookings taken on the pro's offers.
func (h *ProBookingHandler) List(c echo.Context) error {
	limit, offset := pageParams(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid := middleware.UserID(c)
	details, err := h.Bookings.ListForOwner(ctx, uid, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	total, err := h.Bookings.CountForOwner(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	views := make([]bookingView, 0, len(details))
	for _, d := range details {
		views = append(views, viewOf(h.Svc, d, true))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"bookings": views,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// exportLimit caps export size; larger books need repeated calls with
// offsets, which the back office UI does not expose yet.
const exportLimit = 10000

// Export streams the pro's bookings as a CSV or XLSX download,
// selected by the format query parameter (default csv).
func (h *ProBookingHandler) Export(c echo.Context) error {
	format := strings.ToLower(c.QueryParam("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "format must be csv or xlsx"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	details, err := h.Bookings.ListForOwner(ctx, middleware.UserID(c), exportLimit, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	name := fmt.Sprintf("bookings_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))

	var buf bytes.Buffer
	switch format {
	case "csv":
		if err := export.WriteCSV(&buf, details, h.Svc.StatusOf); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
		}
		return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
	default:
		if err := export.WriteXLSX(&buf, details, h.Svc.StatusOf); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
		}
		return c.Blob(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}
