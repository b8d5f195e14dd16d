package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name             string
		booking          Booking
		confirmationDate *time.Time
		want             BookingStatus
	}{
		{"fresh non-event", Booking{}, nil, BookingStatusPending},
		{"deadline ahead", Booking{}, &future, BookingStatusPending},
		{"deadline passed", Booking{}, &past, BookingStatusConfirmed},
		{"deadline exactly now", Booking{}, &now, BookingStatusConfirmed},
		{"used", Booking{DateUsed: &past}, &past, BookingStatusUsed},
		{"cancelled", Booking{CancellationDate: &past}, nil, BookingStatusCancelled},
		{"cancelled wins over used", Booking{DateUsed: &past, CancellationDate: &past}, &past, BookingStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.booking.Status(tc.confirmationDate, now))
		})
	}
}

func TestBookingTotalCents(t *testing.T) {
	assert.Equal(t, int64(0), Booking{AmountCents: 0, Quantity: 1}.TotalCents())
	assert.Equal(t, int64(1500), Booking{AmountCents: 1500, Quantity: 1}.TotalCents())
	assert.Equal(t, int64(3000), Booking{AmountCents: 1500, Quantity: 2}.TotalCents())
}
