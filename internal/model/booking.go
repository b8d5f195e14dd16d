package model

import "time"

// BookingStatus is the lifecycle state of a booking.  Only the terminal
// facts (used, cancelled) are stored; PENDING vs CONFIRMED is derived
// from the cancellation deadline.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusUsed      BookingStatus = "USED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Cancellation reasons stored in bookings.cancellation_reason.
const (
	CancelReasonOfferer     = "OFFERER"
	CancelReasonBeneficiary = "BENEFICIARY"
	CancelReasonExpired     = "EXPIRED"
	CancelReasonFraud       = "FRAUD"
)

// Booking records a beneficiary's reservation against a stock.  The
// countermark token is handed to the beneficiary and typed in by the
// pro to validate the booking at the venue.
//
// Fields:
//  ID                 – primary key identifier.
//  UserID             – beneficiary who booked.
//  StockID            – stock being booked.
//  Token              – 6-character countermark, unique.
//  Quantity           – 1, or 2 for duo offers.
//  AmountCents        – unit price captured at booking time.
//  DateCreated        – creation timestamp.
//  DateUsed           – when the pro validated the booking (nullable).
//  CancellationDate   – when the booking was cancelled (nullable).
//  CancellationReason – OFFERER, BENEFICIARY, EXPIRED or FRAUD.
//  ReimbursementDate  – when the booking entered reimbursement
//                       processing; blocks mark-unused (nullable).
type Booking struct {
	ID                 uint64     // bookings.id
	UserID             uint64     // bookings.user_id
	StockID            uint64     // bookings.stock_id
	Token              string     // bookings.token
	Quantity           int32      // bookings.quantity
	AmountCents        int64      // bookings.amount_cents
	DateCreated        time.Time  // bookings.date_created
	DateUsed           *time.Time // bookings.date_used (nullable)
	CancellationDate   *time.Time // bookings.cancellation_date (nullable)
	CancellationReason *string    // bookings.cancellation_reason (nullable)
	ReimbursementDate  *time.Time // bookings.reimbursement_date (nullable)
}

// TotalCents returns quantity times the unit amount.
func (b Booking) TotalCents() int64 {
	return b.AmountCents * int64(b.Quantity)
}

// IsCancelled reports whether the booking reached the CANCELLED
// terminal state.
func (b Booking) IsCancelled() bool { return b.CancellationDate != nil }

// IsUsed reports whether the booking reached the USED terminal state.
func (b Booking) IsUsed() bool { return b.DateUsed != nil }

// Status derives the lifecycle state at the given instant.
// confirmationDate is the cancellation deadline computed from the event
// start and creation date; nil when the offer has no event date, in
// which case the booking stays PENDING until used or cancelled.
func (b Booking) Status(confirmationDate *time.Time, now time.Time) BookingStatus {
	switch {
	case b.IsCancelled():
		return BookingStatusCancelled
	case b.IsUsed():
		return BookingStatusUsed
	case confirmationDate != nil && !now.Before(*confirmationDate):
		return BookingStatusConfirmed
	default:
		return BookingStatusPending
	}
}
