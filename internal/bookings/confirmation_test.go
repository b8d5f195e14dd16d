package bookings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndelacroix/culture-pass/internal/config"
)

var testPolicy = config.BookingPolicy{
	CancelBeforeEvent:   48 * time.Hour,
	CancelAfterCreation: 48 * time.Hour,
	ExpiryBooks:         10 * 24 * time.Hour,
	ExpiryOther:         30 * 24 * time.Hour,
	InitialDepositCents: 50000,
	DigitalCapCents:     20000,
	PhysicalCapCents:    20000,
}

func TestConfirmationDateNonEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Nil(t, ConfirmationDate(nil, now, now, testPolicy))
}

func TestConfirmationDateFarEvent(t *testing.T) {
	// Event far in the future: the post-creation grace period is the
	// smaller bound.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := now.Add(30 * 24 * time.Hour)

	got := ConfirmationDate(&event, now, now, testPolicy)
	require.NotNil(t, got)
	assert.Equal(t, now.Add(48*time.Hour), *got)
}

func TestConfirmationDateNearEvent(t *testing.T) {
	// Event within four days: the pre-event window is the smaller bound.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := now.Add(3 * 24 * time.Hour)

	got := ConfirmationDate(&event, now, now, testPolicy)
	require.NotNil(t, got)
	assert.Equal(t, event.Add(-48*time.Hour), *got)
}

func TestConfirmationDateImminentEventClampsToNow(t *testing.T) {
	// Booking made inside the 48h window: the deadline would land in
	// the past, so it clamps to now and the booking confirms instantly.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := now.Add(12 * time.Hour)

	got := ConfirmationDate(&event, now, now, testPolicy)
	require.NotNil(t, got)
	assert.Equal(t, now, *got)
}

func TestConfirmationDatePastDeadlineClampsToNow(t *testing.T) {
	// Same booking evaluated after the deadline: the result clamps to
	// the evaluation instant, so the CONFIRMED check (now >= deadline)
	// holds from the original deadline onwards.
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := created.Add(30 * 24 * time.Hour)
	later := created.Add(72 * time.Hour)

	got := ConfirmationDate(&event, created, later, testPolicy)
	require.NotNil(t, got)
	assert.Equal(t, later, *got)
	assert.False(t, later.Before(*got))
}
