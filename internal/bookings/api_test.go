package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/queue"
	"github.com/ndelacroix/culture-pass/internal/repository"
)

// fakeStore implements every store port through overridable function
// fields, so each test states only the behaviour it cares about.
type fakeStore struct {
	getUser          func(uint64) (model.User, error)
	getStock         func(uint64) (repository.StockDetail, error)
	hasActive        func(userID, offerID uint64) (bool, error)
	create           func(*model.Booking) error
	getDetail        func(uint64) (repository.BookingDetail, error)
	getDetailByToken func(string) (repository.BookingDetail, error)
	markCancelled    func(id uint64, reason string, at time.Time) error
	markUsed         func(id uint64, at time.Time) error
	markUnused       func(id uint64) error
	listExpiry       func(bookCutoff, otherCutoff time.Time) ([]repository.BookingDetail, error)
	getExpenses      func(uint64) (repository.Expenses, error)
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (model.User, error) { return f.getUser(id) }
func (f *fakeStore) GetDetail(_ context.Context, id uint64) (repository.StockDetail, error) {
	return f.getStock(id)
}
func (f *fakeStore) GetExpenses(_ context.Context, id uint64) (repository.Expenses, error) {
	return f.getExpenses(id)
}

type fakeBookings struct{ *fakeStore }

func (f fakeBookings) Create(_ context.Context, b *model.Booking) error { return f.create(b) }
func (f fakeBookings) GetDetail(_ context.Context, id uint64) (repository.BookingDetail, error) {
	return f.getDetail(id)
}
func (f fakeBookings) GetDetailByToken(_ context.Context, token string) (repository.BookingDetail, error) {
	return f.getDetailByToken(token)
}
func (f fakeBookings) HasActiveBookingForOffer(_ context.Context, userID, offerID uint64) (bool, error) {
	return f.hasActive(userID, offerID)
}
func (f fakeBookings) MarkCancelled(_ context.Context, id uint64, reason string, at time.Time) error {
	return f.markCancelled(id, reason, at)
}
func (f fakeBookings) MarkUsed(_ context.Context, id uint64, at time.Time) error {
	return f.markUsed(id, at)
}
func (f fakeBookings) MarkUnused(_ context.Context, id uint64) error { return f.markUnused(id) }
func (f fakeBookings) ListExpiryCandidates(_ context.Context, bookCutoff, otherCutoff time.Time) ([]repository.BookingDetail, error) {
	return f.listExpiry(bookCutoff, otherCutoff)
}

// fakeEvents records published events.
type fakeEvents struct {
	created   []queue.BookingCreatedEvent
	cancelled []queue.BookingCancelledEvent
	reindexed []uint64
}

func (f *fakeEvents) BookingCreated(_ context.Context, e queue.BookingCreatedEvent) error {
	f.created = append(f.created, e)
	return nil
}
func (f *fakeEvents) BookingCancelled(_ context.Context, e queue.BookingCancelledEvent) error {
	f.cancelled = append(f.cancelled, e)
	return nil
}
func (f *fakeEvents) OfferReindex(_ context.Context, e queue.OfferReindexEvent) error {
	f.reindexed = append(f.reindexed, e.OfferID)
	return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, events *fakeEvents) *Service {
	svc := NewService(store, store, fakeBookings{store}, store, events, testPolicy, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

// defaultStore wires a beneficiary with fresh credit and a bookable
// concert stock.
func defaultStore() *fakeStore {
	store := &fakeStore{}
	store.getUser = func(uint64) (model.User, error) {
		return model.User{ID: 1, Role: model.RoleBeneficiary, IsActive: true, Email: "jo@example.org"}, nil
	}
	store.getStock = func(uint64) (repository.StockDetail, error) {
		return bookableDetail(), nil
	}
	store.hasActive = func(uint64, uint64) (bool, error) { return false, nil }
	store.getExpenses = func(uint64) (repository.Expenses, error) {
		return repository.Expenses{CreditCents: 50000}, nil
	}
	store.create = func(b *model.Booking) error {
		b.ID = 42
		b.Token = "ABC234"
		b.DateCreated = testNow
		return nil
	}
	store.getDetail = func(id uint64) (repository.BookingDetail, error) {
		return repository.BookingDetail{
			Booking: model.Booking{
				ID: id, UserID: 1, StockID: 1, Token: "ABC234",
				Quantity: 2, AmountCents: 1500, DateCreated: testNow,
			},
			OfferID:   10,
			OfferName: "Concert du soir",
			VenueName: "Le Trianon",
			UserEmail: "jo@example.org",
		}, nil
	}
	return store
}

func TestBookOfferSuccess(t *testing.T) {
	store := defaultStore()
	events := &fakeEvents{}
	svc := newTestService(store, events)

	d, err := svc.BookOffer(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), d.Booking.ID)
	assert.Equal(t, "ABC234", d.Booking.Token)

	require.Len(t, events.created, 1)
	assert.Equal(t, "ABC234", events.created[0].Token)
	assert.Equal(t, int64(3000), events.created[0].TotalCents)
	assert.Equal(t, []uint64{10}, events.reindexed)
}

func TestBookOfferNonBeneficiary(t *testing.T) {
	store := defaultStore()
	store.getUser = func(uint64) (model.User, error) {
		return model.User{ID: 2, Role: model.RolePro, IsActive: true}, nil
	}
	svc := newTestService(store, &fakeEvents{})

	_, err := svc.BookOffer(context.Background(), 2, 1, 1)
	assert.ErrorIs(t, err, ErrUserCannotBook)
}

func TestBookOfferAlreadyBooked(t *testing.T) {
	store := defaultStore()
	store.hasActive = func(uint64, uint64) (bool, error) { return true, nil }
	created := false
	store.create = func(*model.Booking) error { created = true; return nil }
	svc := newTestService(store, &fakeEvents{})

	_, err := svc.BookOffer(context.Background(), 1, 1, 1)
	assert.ErrorIs(t, err, ErrOfferAlreadyBooked)
	assert.False(t, created)
}

func TestBookOfferFreeOfferNeedsCredit(t *testing.T) {
	store := defaultStore()
	store.getStock = func(uint64) (repository.StockDetail, error) {
		d := bookableDetail()
		d.Stock.PriceCents = 0
		return d, nil
	}
	store.getExpenses = func(uint64) (repository.Expenses, error) {
		return repository.Expenses{}, nil
	}
	svc := newTestService(store, &fakeEvents{})

	_, err := svc.BookOffer(context.Background(), 1, 1, 1)
	assert.ErrorIs(t, err, ErrCannotBookFreeOffer)
}

func TestBookOfferTriggerErrorsTranslate(t *testing.T) {
	cases := []struct {
		name string
		repo error
		want error
	}{
		{"over-booking", repository.ErrTooManyBookings, ErrNotEnoughStock},
		{"funds", repository.ErrInsufficientFunds, ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := defaultStore()
			store.create = func(*model.Booking) error { return tc.repo }
			events := &fakeEvents{}
			svc := newTestService(store, events)

			_, err := svc.BookOffer(context.Background(), 1, 1, 1)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, events.created)
		})
	}
}

func TestCancelByBeneficiary(t *testing.T) {
	pendingEvent := testNow.Add(30 * 24 * time.Hour)
	confirmedEvent := testNow.Add(12 * time.Hour)

	detailWith := func(mutate func(*repository.BookingDetail)) func(uint64) (repository.BookingDetail, error) {
		return func(id uint64) (repository.BookingDetail, error) {
			d := repository.BookingDetail{
				Booking: model.Booking{
					ID: id, UserID: 1, Token: "ABC234", Quantity: 1,
					AmountCents: 1500, DateCreated: testNow.Add(-time.Hour),
				},
				OfferID:     10,
				OwnerUserID: 7,
				BeginningAt: &pendingEvent,
			}
			mutate(&d)
			return d, nil
		}
	}

	t.Run("pending cancels", func(t *testing.T) {
		store := defaultStore()
		store.getDetail = detailWith(func(*repository.BookingDetail) {})
		var gotReason string
		store.markCancelled = func(_ uint64, reason string, _ time.Time) error {
			gotReason = reason
			return nil
		}
		events := &fakeEvents{}
		svc := newTestService(store, events)

		d, err := svc.CancelByBeneficiary(context.Background(), 1, 42)
		require.NoError(t, err)
		assert.Equal(t, model.CancelReasonBeneficiary, gotReason)
		assert.NotNil(t, d.Booking.CancellationDate)
		require.Len(t, events.cancelled, 1)
		assert.Equal(t, model.CancelReasonBeneficiary, events.cancelled[0].Reason)
	})

	t.Run("wrong owner", func(t *testing.T) {
		store := defaultStore()
		store.getDetail = detailWith(func(*repository.BookingDetail) {})
		svc := newTestService(store, &fakeEvents{})

		_, err := svc.CancelByBeneficiary(context.Background(), 99, 42)
		assert.ErrorIs(t, err, repository.ErrForbidden)
	})

	t.Run("already cancelled", func(t *testing.T) {
		store := defaultStore()
		store.getDetail = detailWith(func(d *repository.BookingDetail) {
			at := testNow.Add(-time.Minute)
			d.Booking.CancellationDate = &at
		})
		svc := newTestService(store, &fakeEvents{})

		_, err := svc.CancelByBeneficiary(context.Background(), 1, 42)
		assert.ErrorIs(t, err, ErrBookingAlreadyCancelled)
	})

	t.Run("already used", func(t *testing.T) {
		store := defaultStore()
		store.getDetail = detailWith(func(d *repository.BookingDetail) {
			at := testNow.Add(-time.Minute)
			d.Booking.DateUsed = &at
		})
		svc := newTestService(store, &fakeEvents{})

		_, err := svc.CancelByBeneficiary(context.Background(), 1, 42)
		assert.ErrorIs(t, err, ErrBookingAlreadyUsed)
	})

	t.Run("confirmed is locked", func(t *testing.T) {
		store := defaultStore()
		store.getDetail = detailWith(func(d *repository.BookingDetail) {
			d.BeginningAt = &confirmedEvent // inside the 48h window
		})
		svc := newTestService(store, &fakeEvents{})

		_, err := svc.CancelByBeneficiary(context.Background(), 1, 42)
		assert.ErrorIs(t, err, ErrCannotCancelConfirmed)
	})

	t.Run("offerer may cancel confirmed", func(t *testing.T) {
		store := defaultStore()
		store.getDetail = detailWith(func(d *repository.BookingDetail) {
			d.BeginningAt = &confirmedEvent
		})
		store.markCancelled = func(uint64, string, time.Time) error { return nil }
		events := &fakeEvents{}
		svc := newTestService(store, events)

		_, err := svc.CancelByOfferer(context.Background(), 7, 42)
		require.NoError(t, err)
		require.Len(t, events.cancelled, 1)
		assert.Equal(t, model.CancelReasonOfferer, events.cancelled[0].Reason)
	})
}

func TestMarkAsUsed(t *testing.T) {
	soonEvent := testNow.Add(12 * time.Hour) // inside window -> CONFIRMED
	farEvent := testNow.Add(30 * 24 * time.Hour)

	byToken := func(mutate func(*repository.BookingDetail)) func(string) (repository.BookingDetail, error) {
		return func(token string) (repository.BookingDetail, error) {
			d := repository.BookingDetail{
				Booking: model.Booking{
					ID: 42, UserID: 1, Token: token, Quantity: 1,
					AmountCents: 1500, DateCreated: testNow.Add(-time.Hour),
				},
				OwnerUserID: 7,
			}
			mutate(&d)
			return d, nil
		}
	}

	t.Run("confirmed event booking", func(t *testing.T) {
		store := defaultStore()
		store.getDetailByToken = byToken(func(d *repository.BookingDetail) { d.BeginningAt = &soonEvent })
		store.markUsed = func(uint64, time.Time) error { return nil }
		svc := newTestService(store, &fakeEvents{})

		d, err := svc.MarkAsUsed(context.Background(), 7, "ABC234")
		require.NoError(t, err)
		assert.NotNil(t, d.Booking.DateUsed)
	})

	t.Run("pending event booking refused", func(t *testing.T) {
		store := defaultStore()
		store.getDetailByToken = byToken(func(d *repository.BookingDetail) { d.BeginningAt = &farEvent })
		svc := newTestService(store, &fakeEvents{})

		_, err := svc.MarkAsUsed(context.Background(), 7, "ABC234")
		assert.ErrorIs(t, err, ErrBookingNotConfirmed)
	})

	t.Run("non-event booking validates anytime", func(t *testing.T) {
		store := defaultStore()
		store.getDetailByToken = byToken(func(*repository.BookingDetail) {})
		store.markUsed = func(uint64, time.Time) error { return nil }
		svc := newTestService(store, &fakeEvents{})

		_, err := svc.MarkAsUsed(context.Background(), 7, "ABC234")
		assert.NoError(t, err)
	})

	t.Run("foreign countermark", func(t *testing.T) {
		store := defaultStore()
		store.getDetailByToken = byToken(func(*repository.BookingDetail) {})
		svc := newTestService(store, &fakeEvents{})

		_, err := svc.MarkAsUsed(context.Background(), 8, "ABC234")
		assert.ErrorIs(t, err, repository.ErrForbidden)
	})

	t.Run("unuse before reimbursement", func(t *testing.T) {
		used := testNow.Add(-time.Hour)
		store := defaultStore()
		store.getDetailByToken = byToken(func(d *repository.BookingDetail) { d.Booking.DateUsed = &used })
		store.markUnused = func(uint64) error { return nil }
		svc := newTestService(store, &fakeEvents{})

		d, err := svc.MarkAsUnused(context.Background(), 7, "ABC234")
		require.NoError(t, err)
		assert.Nil(t, d.Booking.DateUsed)
	})

	t.Run("unuse blocked after reimbursement", func(t *testing.T) {
		used := testNow.Add(-48 * time.Hour)
		store := defaultStore()
		store.getDetailByToken = byToken(func(d *repository.BookingDetail) {
			d.Booking.DateUsed = &used
			d.Booking.ReimbursementDate = &testNow
		})
		svc := newTestService(store, &fakeEvents{})

		_, err := svc.MarkAsUnused(context.Background(), 7, "ABC234")
		assert.ErrorIs(t, err, ErrBookingRefunded)
	})

	t.Run("unuse requires used", func(t *testing.T) {
		store := defaultStore()
		store.getDetailByToken = byToken(func(*repository.BookingDetail) {})
		svc := newTestService(store, &fakeEvents{})

		_, err := svc.MarkAsUnused(context.Background(), 7, "ABC234")
		assert.ErrorIs(t, err, ErrBookingNotUsed)
	})
}

func TestExpireOverdue(t *testing.T) {
	store := defaultStore()
	candidates := []repository.BookingDetail{
		{Booking: model.Booking{ID: 1, Token: "AAA111"}, OfferID: 10},
		{Booking: model.Booking{ID: 2, Token: "BBB222"}, OfferID: 11},
	}
	var gotBookCutoff, gotOtherCutoff time.Time
	store.listExpiry = func(bookCutoff, otherCutoff time.Time) ([]repository.BookingDetail, error) {
		gotBookCutoff, gotOtherCutoff = bookCutoff, otherCutoff
		return candidates, nil
	}
	store.markCancelled = func(id uint64, reason string, _ time.Time) error {
		assert.Equal(t, model.CancelReasonExpired, reason)
		if id == 2 {
			return repository.ErrConflict // lost the race, skip
		}
		return nil
	}
	events := &fakeEvents{}
	svc := newTestService(store, events)

	n, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, testNow.Add(-testPolicy.ExpiryBooks), gotBookCutoff)
	assert.Equal(t, testNow.Add(-testPolicy.ExpiryOther), gotOtherCutoff)
	require.Len(t, events.cancelled, 1)
	assert.Equal(t, uint64(1), events.cancelled[0].BookingID)
	assert.Equal(t, model.CancelReasonExpired, events.cancelled[0].Reason)
}
