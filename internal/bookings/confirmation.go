package bookings

import (
	"time"

	"github.com/ndelacroix/culture-pass/internal/config"
)

// ConfirmationDate computes the instant after which a booking can no
// longer be cancelled by the beneficiary.  For event bookings it is the
// later of now and the smaller of (event start minus the pre-event
// window) and (creation plus the post-creation grace period).  Bookings
// on offers without an event date never confirm and the result is nil.
func ConfirmationDate(beginningAt *time.Time, createdAt, now time.Time, policy config.BookingPolicy) *time.Time {
	if beginningAt == nil {
		return nil
	}
	d := beginningAt.Add(-policy.CancelBeforeEvent)
	if grace := createdAt.Add(policy.CancelAfterCreation); grace.Before(d) {
		d = grace
	}
	if d.Before(now) {
		d = now
	}
	return &d
}
