package bookings

import "errors"

// Domain errors of the booking lifecycle.  Handlers map these onto HTTP
// statuses; everything else bubbles up as a 500.
var (
	ErrUserCannotBook          = errors.New("user cannot book offers")
	ErrOfferAlreadyBooked      = errors.New("offer is already booked by this user")
	ErrQuantityInvalid         = errors.New("quantity is invalid")
	ErrStockNotBookable        = errors.New("stock is not bookable")
	ErrNotEnoughStock          = errors.New("not enough remaining quantity")
	ErrCannotBookFreeOffer     = errors.New("user cannot book free offers")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrDigitalLimitReached     = errors.New("digital expense limit reached")
	ErrPhysicalLimitReached    = errors.New("physical expense limit reached")
	ErrBookingAlreadyUsed      = errors.New("booking is already used")
	ErrBookingAlreadyCancelled = errors.New("booking is already cancelled")
	ErrCannotCancelConfirmed   = errors.New("booking is confirmed and can no longer be cancelled")
	ErrBookingNotConfirmed     = errors.New("booking is not confirmed yet")
	ErrBookingNotUsed          = errors.New("booking is not used")
	ErrBookingRefunded         = errors.New("booking has entered reimbursement")
)

var domainErrors = []error{
	ErrUserCannotBook,
	ErrOfferAlreadyBooked,
	ErrQuantityInvalid,
	ErrStockNotBookable,
	ErrNotEnoughStock,
	ErrCannotBookFreeOffer,
	ErrInsufficientFunds,
	ErrDigitalLimitReached,
	ErrPhysicalLimitReached,
	ErrBookingAlreadyUsed,
	ErrBookingAlreadyCancelled,
	ErrCannotCancelConfirmed,
	ErrBookingNotConfirmed,
	ErrBookingNotUsed,
	ErrBookingRefunded,
}

// isDomainError reports whether err is a guard rejection rather than an
// infrastructure failure.
func isDomainError(err error) bool {
	for _, e := range domainErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
