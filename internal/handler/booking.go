package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ndelacroix/culture-pass/internal/bookings"
	"github.com/ndelacroix/culture-pass/internal/middleware"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

// BookingHandler serves the beneficiary-facing booking endpoints.
type BookingHandler struct {
	Svc      *bookings.Service
	Bookings *repository.BookingRepo
}

func NewBookingHandler(svc *bookings.Service, bookings *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{Svc: svc, Bookings: bookings}
}

type bookReq struct {
	StockID  uint64 `json:"stock_id"`
	Quantity int32  `json:"quantity"`
}

// Book reserves a stock for the authenticated beneficiary.
func (h *BookingHandler) Book(c echo.Context) error {
	var req bookReq
	if err := c.Bind(&req); err != nil || req.StockID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "stock_id required"})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Svc.BookOffer(ctx, middleware.UserID(c), req.StockID, req.Quantity)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, viewOf(h.Svc, d, false))
}

// List returns the beneficiary's bookings, newest first.
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	details, err := h.Bookings.ListByUser(ctx, middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	views := make([]bookingView, 0, len(details))
	for _, d := range details {
		views = append(views, viewOf(h.Svc, d, false))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": views})
}

// Get returns one of the beneficiary's bookings.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Bookings.GetDetail(ctx, id)
	if err != nil {
		return domainError(c, err)
	}
	if d.Booking.UserID != middleware.UserID(c) {
		return domainError(c, repository.ErrForbidden)
	}
	return c.JSON(http.StatusOK, viewOf(h.Svc, d, false))
}

// Cancel cancels one of the beneficiary's own bookings while it is
// still pending.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	d, err := h.Svc.CancelByBeneficiary(ctx, middleware.UserID(c), id)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(h.Svc, d, false))
}
