// Package handler contains the Echo HTTP handlers of the API.
package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ndelacroix/culture-pass/internal/bookings"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

// dbTimeout bounds every repository call made from a handler.
const dbTimeout = 5 * time.Second

// domainError maps a lifecycle or repository error onto its HTTP
// response. The error message itself is the payload: these messages
// are written for end users.
func domainError(c echo.Context, err error) error {
	var status int
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, bookings.ErrQuantityInvalid),
		errors.Is(err, bookings.ErrCannotBookFreeOffer),
		errors.Is(err, bookings.ErrUserCannotBook):
		status = http.StatusBadRequest
	case errors.Is(err, bookings.ErrOfferAlreadyBooked),
		errors.Is(err, bookings.ErrNotEnoughStock),
		errors.Is(err, bookings.ErrBookingAlreadyUsed),
		errors.Is(err, bookings.ErrBookingAlreadyCancelled),
		errors.Is(err, repository.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, bookings.ErrStockNotBookable),
		errors.Is(err, bookings.ErrInsufficientFunds),
		errors.Is(err, bookings.ErrDigitalLimitReached),
		errors.Is(err, bookings.ErrPhysicalLimitReached),
		errors.Is(err, bookings.ErrCannotCancelConfirmed),
		errors.Is(err, bookings.ErrBookingNotConfirmed),
		errors.Is(err, bookings.ErrBookingNotUsed),
		errors.Is(err, bookings.ErrBookingRefunded):
		status = http.StatusPreconditionFailed
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// bookingView is the JSON shape of a booking in API responses. The
// beneficiary email only appears in pro-facing responses.
type bookingView struct {
	ID               uint64     `json:"id"`
	Token            string     `json:"token"`
	Status           string     `json:"status"`
	OfferID          uint64     `json:"offer_id"`
	OfferName        string     `json:"offer_name"`
	SubcategoryID    string     `json:"subcategory_id"`
	VenueName        string     `json:"venue_name"`
	Quantity         int32      `json:"quantity"`
	AmountCents      int64      `json:"amount_cents"`
	TotalCents       int64      `json:"total_cents"`
	CreatedAt        time.Time  `json:"created_at"`
	ConfirmationDate *time.Time `json:"confirmation_date,omitempty"`
	BeginningAt      *time.Time `json:"beginning_at,omitempty"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`
	UserEmail        string     `json:"user_email,omitempty"`
}

func viewOf(svc *bookings.Service, d repository.BookingDetail, withEmail bool) bookingView {
	v := bookingView{
		ID:               d.Booking.ID,
		Token:            d.Booking.Token,
		Status:           string(svc.StatusOf(d)),
		OfferID:          d.OfferID,
		OfferName:        d.OfferName,
		SubcategoryID:    d.SubcategoryID,
		VenueName:        d.VenueName,
		Quantity:         d.Booking.Quantity,
		AmountCents:      d.Booking.AmountCents,
		TotalCents:       d.Booking.TotalCents(),
		CreatedAt:        d.Booking.DateCreated,
		ConfirmationDate: svc.ConfirmationDateOf(d),
		BeginningAt:      d.BeginningAt,
		UsedAt:           d.Booking.DateUsed,
		CancelledAt:      d.Booking.CancellationDate,
		CancelReason:     d.Booking.CancellationReason,
	}
	if withEmail {
		v.UserEmail = d.UserEmail
	}
	return v
}
